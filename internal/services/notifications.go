package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

const (
	notificationPageSize = 50
	broadcastBatchSize   = 200
	maxBroadcastMessage  = 1000
)

type NotificationService struct {
	db      *gorm.DB
	log     *logrus.Logger
	metrics *observability.Metrics
}

func NewNotificationService(db *gorm.DB, log *logrus.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{db: db, log: log, metrics: metrics}
}

// Notify appends a notification for the recipient. It never returns an
// error: the triggering action has already committed, so a failed write is
// logged and counted and nothing else.
func (s *NotificationService) Notify(ctx context.Context, recipientID int, kind models.NotificationKind, message string, referenceID *int) {
	n := models.Notification{
		UserID:      recipientID,
		Kind:        kind,
		Message:     message,
		ReferenceID: referenceID,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.metrics.NotificationsTotal.WithLabelValues(string(kind), "failed").Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"kind":         kind,
		}).Error("Failed to create notification")
		return
	}
	s.metrics.NotificationsTotal.WithLabelValues(string(kind), "emitted").Inc()
}

func (s *NotificationService) List(ctx context.Context, actor *models.User) (*models.NotificationList, error) {
	if err := policy.Authorize(actor, policy.AckNotification, policy.Resource{}); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	list := &models.NotificationList{Notifications: []models.Notification{}}
	err := db.Where("user_id = ?", actor.ID).
		Order("created_at desc, id desc").
		Limit(notificationPageSize).
		Find(&list.Notifications).Error
	if err != nil {
		return nil, apperr.Internal("failed to fetch notifications", err)
	}

	err = db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", actor.ID, false).
		Count(&list.UnreadCount).Error
	if err != nil {
		return nil, apperr.Internal("failed to count notifications", err)
	}
	return list, nil
}

// MarkRead flags one of the actor's notifications as read. Repeating the
// call is harmless; someone else's notification is reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.User, id int) error {
	if err := policy.Authorize(actor, policy.AckNotification, policy.Resource{}); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)

	var n models.Notification
	if err := db.Where("id = ? AND user_id = ?", id, actor.ID).Take(&n).Error; err != nil {
		return apperr.FromDB(err, "notification not found")
	}
	if n.Read {
		return nil
	}
	if err := db.Model(&n).Update("read", true).Error; err != nil {
		return apperr.Internal("failed to update notification", err)
	}
	return nil
}

// MarkAllRead returns how many notifications changed state.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.User) (int64, error) {
	if err := policy.Authorize(actor, policy.AckNotification, policy.Resource{}); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", actor.ID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, apperr.Internal("failed to update notifications", res.Error)
	}
	return res.RowsAffected, nil
}

// Broadcast sends a SYSTEM notification to every user who is not banned
// and reports how many were written. Unlike Notify this is the action
// itself, so failures are returned.
func (s *NotificationService) Broadcast(ctx context.Context, admin *models.User, level models.MessageLevel, message string) (int, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return 0, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, apperr.InvalidOperation("message is required")
	}
	if len(message) > maxBroadcastMessage {
		return 0, apperr.InvalidOperation(fmt.Sprintf("message must be at most %d characters", maxBroadcastMessage))
	}
	if level == "" {
		level = models.MessageInfo
	}
	if !level.Valid() {
		return 0, apperr.InvalidOperation("message type must be INFO, WARNING or ALERT")
	}
	text := fmt.Sprintf("[%s] %s", level, message)

	var sent int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipients []int
		if err := tx.Model(&models.User{}).Where("banned = ?", false).Pluck("id", &recipients).Error; err != nil {
			return err
		}
		if len(recipients) == 0 {
			return nil
		}

		batch := make([]models.Notification, 0, len(recipients))
		for _, id := range recipients {
			batch = append(batch, models.Notification{UserID: id, Kind: models.NotificationSystem, Message: text})
		}
		if err := tx.CreateInBatches(&batch, broadcastBatchSize).Error; err != nil {
			return err
		}
		sent = len(batch)
		return nil
	})
	if err != nil {
		return 0, apperr.Internal("failed to send platform message", err)
	}

	s.metrics.NotificationsTotal.WithLabelValues(string(models.NotificationSystem), "emitted").Add(float64(sent))
	s.log.WithFields(logrus.Fields{"admin_id": admin.ID, "level": level, "recipients": sent}).Info("Platform message sent")
	return sent, nil
}
