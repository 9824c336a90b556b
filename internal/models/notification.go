package models

import "time"

type NotificationKind string

const (
	NotificationAnswer   NotificationKind = "ANSWER"
	NotificationAccepted NotificationKind = "ACCEPTED"
	NotificationSystem   NotificationKind = "SYSTEM"
)

type Notification struct {
	ID          int              `gorm:"primaryKey" json:"id"`
	UserID      int              `gorm:"not null;index" json:"userId"`
	User        User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Kind        NotificationKind `gorm:"type:varchar(20);not null" json:"type"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	ReferenceID *int             `json:"referenceId"`
	Read        bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unreadCount"`
}
