package models

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Subject  string `gorm:"uniqueIndex;not null" json:"-"` // opaque identity from the token issuer
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"index" json:"-"`
	Password string `json:"-"` // bcrypt hash, local accounts only
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
	Role     Role   `gorm:"type:varchar(10);not null;default:'USER'" json:"role"`

	Banned    bool       `gorm:"not null;default:false;index" json:"banned"`
	BanReason string     `json:"ban_reason,omitempty"`
	BannedAt  *time.Time `json:"banned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Author is the public projection of a user embedded in questions and answers.
type Author struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (u User) Author() Author {
	return Author{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"omitempty,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
