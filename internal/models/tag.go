package models

import "time"

type Tag struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionTag is the join row between questions and tags. The composite
// primary key rejects duplicate pairs.
type QuestionTag struct {
	QuestionID int       `gorm:"primaryKey" json:"question_id"`
	TagID      int       `gorm:"primaryKey;index" json:"tag_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type TagSummary struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	QuestionCount int64  `json:"questionCount"`
}
