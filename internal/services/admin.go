package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

const (
	ReportUsers     = "users"
	ReportQuestions = "questions"
)

type AdminService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewAdminService(db *gorm.DB, log *logrus.Logger) *AdminService {
	return &AdminService{db: db, log: log}
}

func (s *AdminService) Stats(ctx context.Context, admin *models.User) (*models.AdminStats, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var stats models.AdminStats
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.Question{}), &stats.TotalQuestions},
		{db.Model(&models.Answer{}), &stats.TotalAnswers},
		{db.Model(&models.Question{}).Where("status = ?", models.StatusPending), &stats.PendingQuestions},
		{db.Model(&models.User{}).Where("banned = ?", true), &stats.BannedUsers},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, apperr.Internal("failed to load stats", err)
		}
	}
	return &stats, nil
}

// Users lists every account, newest first, with its activity counts.
func (s *AdminService) Users(ctx context.Context, admin *models.User) ([]models.AdminUser, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}

	users := []models.AdminUser{}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select(`users.*,
			(SELECT COUNT(*) FROM questions WHERE questions.author_id = users.id) AS question_count,
			(SELECT COUNT(*) FROM answers WHERE answers.author_id = users.id) AS answer_count`).
		Order("users.created_at desc, users.id desc").
		Scan(&users).Error
	if err != nil {
		return nil, apperr.Internal("failed to fetch users", err)
	}
	return users, nil
}

// Questions lists questions in every state, optionally narrowed to one.
func (s *AdminService) Questions(ctx context.Context, admin *models.User, status models.QuestionStatus) ([]models.QuestionResponse, error) {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return nil, err
	}
	switch status {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		return nil, apperr.InvalidOperation("status must be PENDING, APPROVED or REJECTED")
	}
	db := s.db.WithContext(ctx)

	query := db.Preload("Author").Preload("Tags").Order("created_at desc, id desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var questions []models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, apperr.Internal("failed to fetch questions", err)
	}

	counts, err := answerCounts(db, questionIDs(questions))
	if err != nil {
		return nil, apperr.Internal("failed to count answers", err)
	}
	out := make([]models.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionResponse(q, counts[q.ID]))
	}
	return out, nil
}

// WriteReport streams a CSV export of the named report to w.
func (s *AdminService) WriteReport(ctx context.Context, admin *models.User, kind string, w io.Writer) error {
	if err := policy.Authorize(admin, policy.Moderate, policy.Resource{}); err != nil {
		return err
	}

	var rows [][]string
	switch kind {
	case ReportUsers:
		users, err := s.Users(ctx, admin)
		if err != nil {
			return err
		}
		rows = append(rows, []string{"id", "username", "role", "banned", "ban_reason", "questions", "answers", "created_at"})
		for _, u := range users {
			rows = append(rows, []string{
				strconv.Itoa(u.ID),
				u.Username,
				string(u.Role),
				strconv.FormatBool(u.Banned),
				u.BanReason,
				strconv.FormatInt(u.QuestionCount, 10),
				strconv.FormatInt(u.AnswerCount, 10),
				u.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	case ReportQuestions:
		questions, err := s.Questions(ctx, admin, "")
		if err != nil {
			return err
		}
		rows = append(rows, []string{"id", "title", "author", "status", "answers", "accepted_answer_id", "created_at"})
		for _, q := range questions {
			accepted := ""
			if q.AcceptedAnswerID != nil {
				accepted = strconv.Itoa(*q.AcceptedAnswerID)
			}
			rows = append(rows, []string{
				strconv.Itoa(q.ID),
				q.Title,
				q.Author.Username,
				string(q.Status),
				strconv.FormatInt(q.AnswerCount, 10),
				accepted,
				q.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	default:
		return apperr.NotFound("unknown report type")
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return apperr.Internal("failed to write report", err)
	}
	s.log.WithFields(logrus.Fields{"admin_id": admin.ID, "report": kind, "rows": len(rows) - 1}).Info("Report exported")
	return nil
}
