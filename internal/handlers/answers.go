package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/services"
)

type AnswerHandler struct {
	answers    *services.AnswerService
	votes      *services.VoteService
	acceptance *services.AcceptanceService
}

func NewAnswerHandler(answers *services.AnswerService, votes *services.VoteService, acceptance *services.AcceptanceService) *AnswerHandler {
	return &AnswerHandler{answers: answers, votes: votes, acceptance: acceptance}
}

// GetAnswers returns a question's answers with counters and the caller's vote
func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}

	answers, err := h.answers.List(c.Request.Context(), questionID, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// CreateAnswer handles POST /answers with the question id in the body
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	var input models.CreateAnswerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.QuestionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question ID and content are required"})
		return
	}
	h.create(c, input.QuestionID, input.Body)
}

// CreateQuestionAnswer handles POST /questions/:id/answers
func (h *AnswerHandler) CreateQuestionAnswer(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Body models.Document `json:"body"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.create(c, questionID, input.Body)
}

func (h *AnswerHandler) create(c *gin.Context, questionID int, body models.Document) {
	answer, err := h.answers.Create(c.Request.Context(), middleware.CurrentUser(c), questionID, body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}

// VoteAnswer toggles the caller's vote (PROTECTED - requires authentication)
func (h *AnswerHandler) VoteAnswer(c *gin.Context) {
	answerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vote type"})
		return
	}

	result, err := h.votes.CastVote(c.Request.Context(), middleware.CurrentUser(c), answerID, input.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AcceptAnswer marks an answer as accepted (PROTECTED - question owner only)
func (h *AnswerHandler) AcceptAnswer(c *gin.Context) {
	answerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	accepted, err := h.acceptance.AcceptAnswer(c.Request.Context(), middleware.CurrentUser(c), answerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "Answer accepted successfully",
		"acceptedAnswerId": accepted,
	})
}
