package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/assistant"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/services"
)

type AssistantHandler struct {
	ai        *assistant.Service
	questions *services.QuestionService
}

func NewAssistantHandler(ai *assistant.Service, questions *services.QuestionService) *AssistantHandler {
	return &AssistantHandler{ai: ai, questions: questions}
}

// Answer drafts an answer for a free-form question (PROTECTED)
func (h *AssistantHandler) Answer(c *gin.Context) {
	var input struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
		return
	}

	suggestion, err := h.ai.Suggest(c.Request.Context(), middleware.CurrentUser(c), input.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// SuggestForQuestion drafts an answer for a stored question
func (h *AssistantHandler) SuggestForQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	q, err := h.questions.Get(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	suggestion, err := h.ai.Suggest(c.Request.Context(), actor, q.Title+"\n\n"+q.Body.PlainText())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}
