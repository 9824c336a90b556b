// Package services implements the forum's operations on top of an injected
// *gorm.DB. Every mutating operation runs its policy check before touching
// state, and multi-row mutations run inside a single transaction.
package services

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/auth"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
)

type Deps struct {
	DB      *gorm.DB
	Log     *logrus.Logger
	Metrics *observability.Metrics
	Tokens  *auth.Tokens
}

type Services struct {
	Users         *UserService
	Questions     *QuestionService
	Answers       *AnswerService
	Votes         *VoteService
	Acceptance    *AcceptanceService
	Notifications *NotificationService
	Moderation    *ModerationService
	Admin         *AdminService
}

func New(d Deps) *Services {
	notifications := NewNotificationService(d.DB, d.Log, d.Metrics)
	return &Services{
		Users:         NewUserService(d.DB, d.Log, d.Tokens),
		Questions:     NewQuestionService(d.DB, d.Log),
		Answers:       NewAnswerService(d.DB, d.Log, notifications),
		Votes:         NewVoteService(d.DB, d.Log, d.Metrics),
		Acceptance:    NewAcceptanceService(d.DB, d.Log, d.Metrics, notifications),
		Notifications: notifications,
		Moderation:    NewModerationService(d.DB, d.Log, d.Metrics),
		Admin:         NewAdminService(d.DB, d.Log),
	}
}

// forUpdate takes a row lock on the selected rows until the transaction
// ends. SQLite has no row locks; its single writer gives the same ordering.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
