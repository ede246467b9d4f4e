package models

import "time"

// Quiz ids are dense like category ids. Children follow a re-pack through
// ON UPDATE CASCADE.
type Quiz struct {
	ID          uint       `gorm:"primaryKey;autoIncrement:false" json:"quiz_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	ImageURL    string     `gorm:"size:500" json:"image_url"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CategoryID  *uint      `gorm:"index" json:"category_id"`
	Category    *Category  `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Questions   []Question `gorm:"foreignKey:QuizID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MediaRefs returns every stored-file reference held by the quiz graph.
func (q *Quiz) MediaRefs() []string {
	var refs []string
	if q.ImageURL != "" {
		refs = append(refs, q.ImageURL)
	}
	for _, question := range q.Questions {
		refs = append(refs, question.MediaRefs()...)
	}
	return refs
}
