package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"user_id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'CLIENT'" json:"role"`
	Avatar       string    `gorm:"size:500" json:"avatar"`
	Blocked      bool      `gorm:"not null;default:false" json:"blocked"`
	TelegramID   *int64    `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	RoleClient = "CLIENT"
	RoleAdmin  = "ADMIN"
	RoleGuest  = "GUEST"
)

func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleAdmin, RoleGuest:
		return true
	}
	return false
}
