package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/emilythestrangee/qa-forum/backend/internal/assistant"
	"github.com/emilythestrangee/qa-forum/backend/internal/auth"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/database"
	"github.com/emilythestrangee/qa-forum/backend/internal/handlers"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/services"
)

const serviceName = "qa-forum"

// Deps is everything the HTTP layer needs. The caller owns the lifetime
// of the database.
type Deps struct {
	Config    *config.Config
	DB        database.Service
	Log       *logrus.Logger
	Metrics   *observability.Metrics
	Tokens    *auth.Tokens
	Services  *services.Services
	Assistant *assistant.Service
}

type Server struct {
	cfg     *config.Config
	db      database.Service
	log     *logrus.Logger
	metrics *observability.Metrics
	tokens  *auth.Tokens
	users   *services.UserService
	handler *handlers.Handler
	limiter *middleware.RateLimiter
}

func New(d Deps) *Server {
	return &Server{
		cfg:     d.Config,
		db:      d.DB,
		log:     d.Log,
		metrics: d.Metrics,
		tokens:  d.Tokens,
		users:   d.Services.Users,
		handler: handlers.NewHandler(d.Services, d.Assistant),
		limiter: middleware.NewRateLimiter(d.Config.AIPerMin),
	}
}

// NewServer creates and configures a new server
func NewServer(d Deps) (*http.Server, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	s := New(d)
	server := &http.Server{
		Addr:         "0.0.0.0:" + d.Config.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	d.Log.WithField("port", d.Config.Port).Info("Server starting")
	return server, nil
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		s.metrics.Middleware(),
	)

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(s.cfg.CORS),
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	requireUser := middleware.AuthMiddleware(s.tokens, s.users)
	optionalUser := middleware.OptionalAuth(s.tokens, s.users)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/auth/register", s.handler.Auth.Register)
		api.POST("/auth/login", s.handler.Auth.Login)

		// Question routes (public reads, admins also see rejected questions)
		public := api.Group("", optionalUser)
		public.GET("/questions", s.handler.Question.GetQuestions)
		public.GET("/questions/:id", s.handler.Question.GetQuestion)
		public.GET("/questions/:id/answers", s.handler.Answer.GetAnswers)
		public.GET("/tags", s.handler.Question.GetTags)

		// Protected routes (authentication required)
		protected := api.Group("", requireUser)
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/questions", s.handler.Question.CreateQuestion)
			protected.POST("/questions/:id/answers", s.handler.Answer.CreateQuestionAnswer)
			protected.POST("/answers", s.handler.Answer.CreateAnswer)
			protected.POST("/answers/:id/vote", s.handler.Answer.VoteAnswer)
			protected.POST("/answers/:id/accept", s.handler.Answer.AcceptAnswer)

			protected.GET("/notifications", s.handler.Notification.GetNotifications)
			protected.POST("/notifications/read-all", s.handler.Notification.MarkAllRead)
			protected.POST("/notifications/:id/read", s.handler.Notification.MarkRead)

			protected.POST("/ai/answer", s.limiter.RateLimit(), s.handler.Assistant.Answer)
			protected.POST("/questions/:id/suggest", s.limiter.RateLimit(), s.handler.Assistant.SuggestForQuestion)
		}

		// Admin routes; the role check lives in the services
		admin := protected.Group("/admin")
		{
			admin.GET("/stats", s.handler.Admin.GetStats)
			admin.GET("/users", s.handler.Admin.GetUsers)
			admin.GET("/questions", s.handler.Admin.GetQuestions)
			admin.POST("/users/:id/ban", s.handler.Admin.BanUser)
			admin.POST("/users/:id/unban", s.handler.Admin.UnbanUser)
			admin.POST("/users/:id/promote", s.handler.Admin.PromoteUser)
			admin.POST("/questions/:id/approve", s.handler.Admin.ApproveQuestion)
			admin.POST("/questions/:id/reject", s.handler.Admin.RejectQuestion)
			admin.POST("/messages", s.handler.Admin.SendMessage)
			admin.GET("/reports/:type", s.handler.Admin.DownloadReport)
		}
	}

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
