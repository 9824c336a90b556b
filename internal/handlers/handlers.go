package handlers

import (
	"github.com/emilythestrangee/qa-forum/backend/internal/assistant"
	"github.com/emilythestrangee/qa-forum/backend/internal/services"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Question     *QuestionHandler
	Answer       *AnswerHandler
	Notification *NotificationHandler
	Admin        *AdminHandler
	Assistant    *AssistantHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *services.Services, ai *assistant.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Users),
		Question:     NewQuestionHandler(svc.Questions),
		Answer:       NewAnswerHandler(svc.Answers, svc.Votes, svc.Acceptance),
		Notification: NewNotificationHandler(svc.Notifications),
		Admin:        NewAdminHandler(svc.Admin, svc.Moderation, svc.Notifications),
		Assistant:    NewAssistantHandler(ai, svc.Questions),
	}
}
