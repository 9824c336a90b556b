package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

type AcceptanceService struct {
	db            *gorm.DB
	log           *logrus.Logger
	metrics       *observability.Metrics
	notifications *NotificationService
}

func NewAcceptanceService(db *gorm.DB, log *logrus.Logger, metrics *observability.Metrics, notifications *NotificationService) *AcceptanceService {
	return &AcceptanceService{db: db, log: log, metrics: metrics, notifications: notifications}
}

// AcceptAnswer points the answer's question at it, replacing any earlier
// acceptance. Only the question's author may do this. The answer's author
// is notified once the change has committed.
func (s *AcceptanceService) AcceptAnswer(ctx context.Context, actor *models.User, answerID int) (int, error) {
	if err := policy.RequireActor(actor); err != nil {
		return 0, err
	}

	var (
		answer   models.Answer
		question models.Question
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&answer, answerID).Error; err != nil {
			return apperr.FromDB(err, "answer not found")
		}
		if err := forUpdate(tx).First(&question, answer.QuestionID).Error; err != nil {
			return apperr.FromDB(err, "question not found")
		}
		if err := policy.Authorize(actor, policy.AcceptAnswer, policy.Resource{OwnerID: question.AuthorID}); err != nil {
			return err
		}
		if question.AcceptedAnswerID != nil && *question.AcceptedAnswerID == answer.ID {
			return apperr.AlreadyAccepted("answer is already accepted")
		}
		return tx.Model(&question).UpdateColumn("accepted_answer_id", answer.ID).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, apperr.Internal("failed to accept answer", err)
	}

	s.metrics.AcceptancesTotal.Inc()
	s.log.WithFields(logrus.Fields{"question_id": question.ID, "answer_id": answer.ID}).Info("Answer accepted")

	if answer.AuthorID != actor.ID {
		s.notifications.Notify(ctx, answer.AuthorID, models.NotificationAccepted,
			fmt.Sprintf("%s accepted your answer to %q", actor.Username, question.Title), &answer.ID)
	}
	return answer.ID, nil
}
