package models

type Question struct {
	ID       uint     `gorm:"primaryKey" json:"question_id"`
	QuizID   uint     `gorm:"not null;index" json:"quiz_id"`
	Text     string   `gorm:"type:text;not null" json:"text"`
	MediaURL string   `gorm:"size:500" json:"media_url"`
	Position int      `gorm:"not null;default:0" json:"position"`
	Answers  []Answer `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
}

func (q *Question) MediaRefs() []string {
	var refs []string
	if q.MediaURL != "" {
		refs = append(refs, q.MediaURL)
	}
	for _, a := range q.Answers {
		if a.MediaURL != "" {
			refs = append(refs, a.MediaURL)
		}
	}
	return refs
}
