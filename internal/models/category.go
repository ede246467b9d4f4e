package models

import "time"

// Category ids are dense: they are assigned by the identity package and
// re-packed after every delete.
type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"category_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"size:500" json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
