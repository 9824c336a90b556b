package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/assistant"
	"github.com/emilythestrangee/qa-forum/backend/internal/auth"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/database"
	"github.com/emilythestrangee/qa-forum/backend/internal/logger"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/server"
	"github.com/emilythestrangee/qa-forum/backend/internal/services"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg *config.Config
	log *logrus.Logger

	tokenSubject string
	tokenName    string

	rootCmd = &cobra.Command{
		Use:   "qaforum",
		Short: "Q&A forum API server and maintenance tasks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			log = logger.New(cfg.LogLevel)
			return nil
		},
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Insert the default tags and a demo user",
		RunE:  runSeed,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an external identity",
		RunE:  runToken,
	}
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "identity subject the token is issued for")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name or email used when the profile is first created")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, tokenCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	store, err := database.New(cfg.DB, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
		}
	}()

	metrics := observability.New()
	tokens := auth.NewTokens(cfg.Auth)
	svc := services.New(services.Deps{DB: store.GetDB(), Log: log, Metrics: metrics, Tokens: tokens})

	var gen assistant.Generator
	if cfg.LLM.APIKey != "" {
		gen = assistant.NewOpenAIClient(cfg.LLM)
	} else {
		log.Warn("No LLM API key configured, suggested answers will use the fallback text")
	}
	ai := assistant.New(gen, cfg.LLM.Timeout, log, metrics)

	srv, err := server.NewServer(server.Deps{
		Config:    cfg,
		DB:        store,
		Log:       log,
		Metrics:   metrics,
		Tokens:    tokens,
		Services:  svc,
		Assistant: ai,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DB, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Info("Database migrations completed")
	return closeDB(db)
}

func runSeed(cmd *cobra.Command, args []string) error {
	store, err := database.New(cfg.DB, log)
	if err != nil {
		return err
	}
	defer store.Close()

	demo, err := database.Seed(store.GetDB())
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"tags": len(database.DefaultTags), "demo_user_id": demo.ID}).Info("Seed data applied")
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	token, err := auth.NewTokens(cfg.Auth).Issue(tokenSubject, tokenName)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
