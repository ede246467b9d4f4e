package models

type Answer struct {
	ID         uint   `gorm:"primaryKey" json:"answer_id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"type:text;not null" json:"text"`
	MediaURL   string `gorm:"size:500" json:"media_url"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
}
