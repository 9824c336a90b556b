package models

type AdminStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalQuestions   int64 `json:"totalQuestions"`
	TotalAnswers     int64 `json:"totalAnswers"`
	PendingQuestions int64 `json:"pendingQuestions"`
	BannedUsers      int64 `json:"bannedUsers"`
}

// AdminUser is a user row with activity counts for the moderation list.
type AdminUser struct {
	User
	QuestionCount int64 `json:"questionCount"`
	AnswerCount   int64 `json:"answerCount"`
}

// MessageLevel classifies a platform-wide message sent by an admin.
type MessageLevel string

const (
	MessageInfo    MessageLevel = "INFO"
	MessageWarning MessageLevel = "WARNING"
	MessageAlert   MessageLevel = "ALERT"
)

func (l MessageLevel) Valid() bool {
	return l == MessageInfo || l == MessageWarning || l == MessageAlert
}

type BanRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type PlatformMessageRequest struct {
	Message string       `json:"message" binding:"required,max=1000"`
	Type    MessageLevel `json:"type" binding:"omitempty,oneof=INFO WARNING ALERT"`
}
