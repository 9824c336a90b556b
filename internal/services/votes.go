package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

type VoteService struct {
	db      *gorm.DB
	log     *logrus.Logger
	metrics *observability.Metrics
}

func NewVoteService(db *gorm.DB, log *logrus.Logger, metrics *observability.Metrics) *VoteService {
	return &VoteService{db: db, log: log, metrics: metrics}
}

// CastVote toggles the voter's vote on an answer. Submitting the current
// direction removes the vote, the other direction overwrites it, and no
// vote creates one. The answer row stays locked for the whole transaction,
// so concurrent voters on one answer recount after each other's commits.
func (s *VoteService) CastVote(ctx context.Context, voter *models.User, answerID int, dir models.VoteType) (*models.VoteResult, error) {
	if err := policy.RequireActor(voter); err != nil {
		return nil, err
	}
	if !dir.Valid() {
		return nil, apperr.InvalidOperation("vote type must be UPVOTE or DOWNVOTE")
	}

	var (
		result  models.VoteResult
		outcome string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := forUpdate(tx).First(&answer, answerID).Error; err != nil {
			return apperr.FromDB(err, "answer not found")
		}
		if err := policy.Authorize(voter, policy.CastVote, policy.Resource{OwnerID: answer.AuthorID}); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Where("user_id = ? AND answer_id = ?", voter.ID, answer.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{UserID: voter.ID, AnswerID: answer.ID, VoteType: dir}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			result.UserVote = &dir
			outcome = "created"
		case err != nil:
			return err
		case existing.VoteType == dir:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			outcome = "removed"
		default:
			if err := tx.Model(&existing).Update("vote_type", dir).Error; err != nil {
				return err
			}
			result.UserVote = &dir
			outcome = "changed"
		}

		up, down, err := calculateVotes(tx, answer.ID)
		if err != nil {
			return err
		}
		result.Upvotes, result.Downvotes = up, down
		return tx.Model(&answer).UpdateColumns(map[string]interface{}{
			"upvotes":   up,
			"downvotes": down,
		}).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Internal("failed to record vote", err)
	}

	s.metrics.VotesTotal.WithLabelValues(outcome).Inc()
	s.log.WithFields(logrus.Fields{
		"answer_id": answerID,
		"voter_id":  voter.ID,
		"outcome":   outcome,
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
	}).Debug("Vote recorded")
	return &result, nil
}

// calculateVotes counts the ledger rows for an answer in each direction.
func calculateVotes(db *gorm.DB, answerID int) (int, int, error) {
	var rows []struct {
		VoteType models.VoteType
		N        int
	}
	err := db.Model(&models.Vote{}).
		Select("vote_type, COUNT(*) AS n").
		Where("answer_id = ?", answerID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var up, down int
	for _, r := range rows {
		switch r.VoteType {
		case models.Upvote:
			up = r.N
		case models.Downvote:
			down = r.N
		}
	}
	return up, down, nil
}
