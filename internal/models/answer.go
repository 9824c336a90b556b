package models

import "time"

type Answer struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	QuestionID int       `gorm:"not null;index" json:"questionId"`
	Question   Question  `gorm:"foreignKey:QuestionID" json:"-"`
	AuthorID   int       `gorm:"not null;index" json:"authorId"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"-"`
	Body       Document  `gorm:"serializer:json;type:text;not null" json:"body"`
	Upvotes    int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes  int       `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateAnswerRequest struct {
	QuestionID int      `json:"questionId"`
	Body       Document `json:"body"`
}

type AnswerResponse struct {
	ID         int       `json:"id"`
	QuestionID int       `json:"questionId"`
	Body       Document  `json:"body"`
	Author     Author    `json:"author"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	Accepted   bool      `json:"accepted"`
	UserVote   *VoteType `json:"userVote"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
