package models

import "time"

type VoteType string

const (
	Upvote   VoteType = "UPVOTE"
	Downvote VoteType = "DOWNVOTE"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Vote is one row of the ledger backing an answer's cached counters.
// At most one row exists per (user, answer).
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_votes_user_answer" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AnswerID  int       `gorm:"not null;uniqueIndex:idx_votes_user_answer;index" json:"answer_id"`
	Answer    Answer    `gorm:"foreignKey:AnswerID;constraint:OnDelete:CASCADE" json:"-"`
	VoteType  VoteType  `gorm:"type:varchar(10);not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VoteRequest struct {
	VoteType VoteType `json:"voteType" binding:"required,oneof=UPVOTE DOWNVOTE"`
}

type VoteResult struct {
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	UserVote  *VoteType `json:"userVote"`
}
