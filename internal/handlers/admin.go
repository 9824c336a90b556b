package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/services"
)

type AdminHandler struct {
	admin         *services.AdminService
	moderation    *services.ModerationService
	notifications *services.NotificationService
}

func NewAdminHandler(admin *services.AdminService, moderation *services.ModerationService, notifications *services.NotificationService) *AdminHandler {
	return &AdminHandler{admin: admin, moderation: moderation, notifications: notifications}
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.admin.Users(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetQuestions lists questions for the moderation queue, optionally by ?status
func (h *AdminHandler) GetQuestions(c *gin.Context) {
	status := models.QuestionStatus(c.Query("status"))
	questions, err := h.admin.Questions(c.Request.Context(), middleware.CurrentUser(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *AdminHandler) BanUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.BanRequest
	// the body is optional; an empty one bans without a reason
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	user, err := h.moderation.BanUser(c.Request.Context(), middleware.CurrentUser(c), id, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User banned", "user": user})
}

func (h *AdminHandler) UnbanUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.moderation.UnbanUser(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unbanned", "user": user})
}

func (h *AdminHandler) PromoteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.moderation.PromoteUser(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User promoted to admin", "user": user})
}

func (h *AdminHandler) ApproveQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	q, err := h.moderation.ApproveQuestion(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question approved", "status": q.Status})
}

func (h *AdminHandler) RejectQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	q, err := h.moderation.RejectQuestion(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question rejected", "status": q.Status})
}

// SendMessage broadcasts a platform message to every active user
func (h *AdminHandler) SendMessage(c *gin.Context) {
	var input models.PlatformMessageRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sent, err := h.notifications.Broadcast(c.Request.Context(), middleware.CurrentUser(c), input.Type, input.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message sent", "recipients": sent})
}

// DownloadReport renders the report into memory first so a failure can
// still be reported as JSON instead of a truncated CSV.
func (h *AdminHandler) DownloadReport(c *gin.Context) {
	kind := c.Param("type")

	var buf bytes.Buffer
	if err := h.admin.WriteReport(c.Request.Context(), middleware.CurrentUser(c), kind, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+kind+`-report.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
