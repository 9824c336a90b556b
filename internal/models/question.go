package models

import "time"

type QuestionStatus string

const (
	StatusPending  QuestionStatus = "PENDING"
	StatusApproved QuestionStatus = "APPROVED"
	StatusRejected QuestionStatus = "REJECTED"
)

type Question struct {
	ID               int            `gorm:"primaryKey" json:"id"`
	Title            string         `gorm:"type:varchar(300);not null" json:"title"`
	Body             Document       `gorm:"serializer:json;type:text;not null" json:"body"`
	BodyText         string         `gorm:"type:text" json:"-"` // plain-text projection of Body, used by search
	AuthorID         int            `gorm:"not null;index" json:"author_id"`
	Author           User           `gorm:"foreignKey:AuthorID" json:"-"`
	Status           QuestionStatus `gorm:"type:varchar(10);not null;default:'PENDING';index" json:"status"`
	AcceptedAnswerID *int           `json:"acceptedAnswerId"`
	Tags             []Tag          `gorm:"many2many:question_tags;" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type CreateQuestionRequest struct {
	Title string   `json:"title" binding:"required,min=5,max=300"`
	Body  Document `json:"body"`
	Tags  []string `json:"tags" binding:"max=5,dive,tagname"`
}

type QuestionListParams struct {
	Search string `form:"search"`
	Tag    string `form:"tag"`
	Limit  int    `form:"limit,default=10"`
}

type QuestionResponse struct {
	ID               int            `json:"id"`
	Title            string         `json:"title"`
	Body             Document       `json:"body"`
	Status           QuestionStatus `json:"status"`
	Author           Author         `json:"author"`
	Tags             []Tag          `json:"tags"`
	AnswerCount      int64          `json:"answerCount"`
	AcceptedAnswerID *int           `json:"acceptedAnswerId"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type QuestionPage struct {
	Questions []QuestionResponse `json:"questions"`
	Total     int64              `json:"total"`
	Search    string             `json:"search"`
}
