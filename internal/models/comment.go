package models

import (
	"time"
)

// Comment corresponds to the comments table.
type Comment struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	VideoID  uint64 `gorm:"not null;index" json:"video_id"`
	UserID   uint64 `gorm:"not null;index" json:"user_id"`
	Username string `gorm:"type:varchar(64);not null" json:"username"`
	Content  string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
