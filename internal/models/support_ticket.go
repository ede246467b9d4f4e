package models

import "time"

type SupportTicket struct {
	ID        uint      `gorm:"primaryKey" json:"ticket_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Username  string    `gorm:"size:255" json:"username"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    string    `gorm:"size:20;not null;default:'new'" json:"status"`
	Response  string    `gorm:"type:text" json:"response"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	TicketStatusNew      = "new"
	TicketStatusAnswered = "answered"
)
