package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

type AnswerService struct {
	db            *gorm.DB
	log           *logrus.Logger
	notifications *NotificationService
}

func NewAnswerService(db *gorm.DB, log *logrus.Logger, notifications *NotificationService) *AnswerService {
	return &AnswerService{db: db, log: log, notifications: notifications}
}

// Create posts an answer and tells the question's author about it, unless
// they answered their own question.
func (s *AnswerService) Create(ctx context.Context, actor *models.User, questionID int, body models.Document) (*models.AnswerResponse, error) {
	if err := policy.Authorize(actor, policy.PostAnswer, policy.Resource{}); err != nil {
		return nil, err
	}
	if err := body.Validate(); err != nil {
		return nil, apperr.InvalidOperation(err.Error())
	}
	db := s.db.WithContext(ctx)

	var question models.Question
	if err := db.First(&question, questionID).Error; err != nil {
		return nil, apperr.FromDB(err, "question not found")
	}
	if question.Status == models.StatusRejected {
		return nil, apperr.InvalidOperation("question is not open for answers")
	}

	answer := models.Answer{
		QuestionID: question.ID,
		AuthorID:   actor.ID,
		Body:       body,
	}
	if err := db.Omit(clause.Associations).Create(&answer).Error; err != nil {
		return nil, apperr.Internal("failed to create answer", err)
	}
	s.log.WithFields(logrus.Fields{"answer_id": answer.ID, "question_id": question.ID}).Info("Answer created")

	if question.AuthorID != actor.ID {
		s.notifications.Notify(ctx, question.AuthorID, models.NotificationAnswer,
			fmt.Sprintf("%s answered your question %q", actor.Username, question.Title), &answer.ID)
	}

	answer.Author = *actor
	resp := toAnswerResponse(answer, question.AcceptedAnswerID, nil)
	return &resp, nil
}

// List returns a question's answers, best voted first, each with the
// viewer's own vote when a viewer is known.
func (s *AnswerService) List(ctx context.Context, questionID int, viewer *models.User) ([]models.AnswerResponse, error) {
	db := s.db.WithContext(ctx)

	var question models.Question
	if err := db.First(&question, questionID).Error; err != nil {
		return nil, apperr.FromDB(err, "question not found")
	}
	if question.Status == models.StatusRejected && (viewer == nil || !viewer.IsAdmin()) {
		return nil, apperr.NotFound("question not found")
	}

	var answers []models.Answer
	err := db.Preload("Author").
		Where("question_id = ?", question.ID).
		Order("upvotes desc, created_at asc, id asc").
		Find(&answers).Error
	if err != nil {
		return nil, apperr.Internal("failed to fetch answers", err)
	}

	userVotes := map[int]models.VoteType{}
	if viewer != nil && viewer.ID != 0 && len(answers) > 0 {
		ids := make([]int, len(answers))
		for i, a := range answers {
			ids[i] = a.ID
		}
		var votes []models.Vote
		if err := db.Where("user_id = ? AND answer_id IN ?", viewer.ID, ids).Find(&votes).Error; err != nil {
			return nil, apperr.Internal("failed to fetch votes", err)
		}
		for _, v := range votes {
			userVotes[v.AnswerID] = v.VoteType
		}
	}

	out := make([]models.AnswerResponse, 0, len(answers))
	for _, a := range answers {
		var mine *models.VoteType
		if v, ok := userVotes[a.ID]; ok {
			mine = &v
		}
		out = append(out, toAnswerResponse(a, question.AcceptedAnswerID, mine))
	}
	return out, nil
}

func toAnswerResponse(a models.Answer, acceptedID *int, userVote *models.VoteType) models.AnswerResponse {
	return models.AnswerResponse{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Body:       a.Body,
		Author:     a.Author.Author(),
		Upvotes:    a.Upvotes,
		Downvotes:  a.Downvotes,
		Accepted:   acceptedID != nil && *acceptedID == a.ID,
		UserVote:   userVote,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
