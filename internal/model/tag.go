package model

import "time"

// Tag labels tasks by area (work, health, study, etc.). Names are unique
// per user.
type Tag struct {
	ID        string `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_user_tag_name,unique"`
	Name      string `gorm:"index:idx_user_tag_name,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
