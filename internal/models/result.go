package models

import "time"

// Result is written once per submission and never updated.
type Result struct {
	ID             uint      `gorm:"primaryKey" json:"result_id"`
	UserID         uint      `gorm:"not null;index:idx_result_user_quiz" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	QuizID         uint      `gorm:"not null;index:idx_result_user_quiz" json:"quiz_id"`
	Quiz           Quiz      `gorm:"foreignKey:QuizID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CorrectAnswers int       `gorm:"not null" json:"correct_answers"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	Score          int       `gorm:"not null" json:"score"`
	CompletedAt    time.Time `gorm:"not null;index" json:"completed_at"`
}
