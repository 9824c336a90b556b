package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

type ModerationService struct {
	db      *gorm.DB
	log     *logrus.Logger
	metrics *observability.Metrics
}

func NewModerationService(db *gorm.DB, log *logrus.Logger, metrics *observability.Metrics) *ModerationService {
	return &ModerationService{db: db, log: log, metrics: metrics}
}

// BanUser blocks the target from writing. Banning an already banned user
// leaves the original reason in place.
func (s *ModerationService) BanUser(ctx context.Context, admin *models.User, targetID int, reason string) (*models.User, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	target, err := s.loadUser(db, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == admin.ID {
		return nil, apperr.InvalidOperation("you cannot ban yourself")
	}
	if target.IsAdmin() {
		return nil, apperr.InvalidOperation("administrators cannot be banned")
	}
	if target.Banned {
		return target, nil
	}

	now := time.Now().UTC()
	err = db.Model(target).Updates(map[string]interface{}{
		"banned":     true,
		"ban_reason": strings.TrimSpace(reason),
		"banned_at":  now,
	}).Error
	if err != nil {
		return nil, apperr.Internal("failed to ban user", err)
	}
	s.record("ban", admin, logrus.Fields{"user_id": target.ID})
	return s.loadUser(db, targetID)
}

func (s *ModerationService) UnbanUser(ctx context.Context, admin *models.User, targetID int) (*models.User, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	target, err := s.loadUser(db, targetID)
	if err != nil {
		return nil, err
	}
	if !target.Banned {
		return target, nil
	}

	err = db.Model(target).Updates(map[string]interface{}{
		"banned":     false,
		"ban_reason": "",
		"banned_at":  nil,
	}).Error
	if err != nil {
		return nil, apperr.Internal("failed to unban user", err)
	}
	s.record("unban", admin, logrus.Fields{"user_id": target.ID})
	return s.loadUser(db, targetID)
}

// PromoteUser grants the ADMIN role.
func (s *ModerationService) PromoteUser(ctx context.Context, admin *models.User, targetID int) (*models.User, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	target, err := s.loadUser(db, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin() {
		return target, nil
	}
	if target.Banned {
		return nil, apperr.InvalidOperation("banned users cannot be promoted")
	}

	if err := db.Model(target).Update("role", models.RoleAdmin).Error; err != nil {
		return nil, apperr.Internal("failed to promote user", err)
	}
	s.record("promote", admin, logrus.Fields{"user_id": target.ID})
	return s.loadUser(db, targetID)
}

func (s *ModerationService) ApproveQuestion(ctx context.Context, admin *models.User, questionID int) (*models.Question, error) {
	return s.setStatus(ctx, admin, questionID, models.StatusApproved)
}

func (s *ModerationService) RejectQuestion(ctx context.Context, admin *models.User, questionID int) (*models.Question, error) {
	return s.setStatus(ctx, admin, questionID, models.StatusRejected)
}

// setStatus moves a question out of PENDING. Decisions are final: asking
// for the current status is a no-op, anything else from a decided state is
// refused.
func (s *ModerationService) setStatus(ctx context.Context, admin *models.User, questionID int, status models.QuestionStatus) (*models.Question, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}

	var (
		question models.Question
		changed  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&question, questionID).Error; err != nil {
			return apperr.FromDB(err, "question not found")
		}
		switch question.Status {
		case status:
			return nil
		case models.StatusPending:
		default:
			return apperr.InvalidOperation(fmt.Sprintf("question is already %s", strings.ToLower(string(question.Status))))
		}
		if err := tx.Model(&question).Update("status", status).Error; err != nil {
			return apperr.Internal("failed to update question", err)
		}
		question.Status = status
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.record(strings.ToLower(string(status)), admin, logrus.Fields{"question_id": question.ID})
	}
	return &question, nil
}

func (s *ModerationService) loadUser(db *gorm.DB, id int) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user not found")
	}
	return &user, nil
}

func (s *ModerationService) record(action string, admin *models.User, fields logrus.Fields) {
	s.metrics.ModerationTotal.WithLabelValues(action).Inc()
	s.log.WithFields(fields).WithFields(logrus.Fields{"admin_id": admin.ID, "action": action}).Info("Moderation action")
}
