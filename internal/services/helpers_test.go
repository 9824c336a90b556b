package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/auth"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/database"
	"github.com/emilythestrangee/qa-forum/backend/internal/logger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
)

var ctx = context.Background()

type fixture struct {
	svc     *Services
	db      *gorm.DB
	metrics *observability.Metrics
	tokens  *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := database.New(config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	metrics := observability.New()
	tokens := auth.NewTokens(config.AuthConfig{Secret: []byte("test-secret"), Issuer: "qa-forum", TokenTTL: time.Hour})
	svc := New(Deps{DB: store.GetDB(), Log: logger.Discard(), Metrics: metrics, Tokens: tokens})
	return &fixture{svc: svc, db: store.GetDB(), metrics: metrics, tokens: tokens}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := models.User{Subject: "test|" + username, Username: username, Role: models.RoleUser}
	require.NoError(t, f.db.Create(&u).Error)
	return &u
}

func (f *fixture) admin(t *testing.T, username string) *models.User {
	t.Helper()
	u := f.user(t, username)
	require.NoError(t, f.db.Model(u).Update("role", models.RoleAdmin).Error)
	u.Role = models.RoleAdmin
	return u
}

func (f *fixture) banned(t *testing.T, username string) *models.User {
	t.Helper()
	u := f.user(t, username)
	require.NoError(t, f.db.Model(u).Update("banned", true).Error)
	u.Banned = true
	return u
}

func (f *fixture) question(t *testing.T, author *models.User, title string, tags ...string) *models.QuestionResponse {
	t.Helper()
	q, err := f.svc.Questions.Create(ctx, author, models.CreateQuestionRequest{
		Title: title,
		Body:  models.NewDocument("Details about " + title),
		Tags:  tags,
	})
	require.NoError(t, err)
	return q
}

func (f *fixture) answer(t *testing.T, author *models.User, questionID int, text string) *models.AnswerResponse {
	t.Helper()
	a, err := f.svc.Answers.Create(ctx, author, questionID, models.NewDocument(text))
	require.NoError(t, err)
	return a
}

func (f *fixture) notificationsFor(t *testing.T, userID int) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&out).Error)
	return out
}
