package models

import (
	"time"
)

// Image corresponds to the images table. The same author may not register
// two images under the same client-supplied name; the unique index on
// (user_id, original_name) enforces that. FileName is the generated remote
// object name and is unique per upload by construction.
type Image struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OriginalName string `gorm:"type:varchar(512);not null;uniqueIndex:idx_author_file" json:"original_name"`
	FileName     string `gorm:"type:varchar(512);not null" json:"file_name"`
	UserID       uint64 `gorm:"not null;uniqueIndex:idx_author_file" json:"user_id"`
	Author       string `gorm:"type:varchar(64);not null;index" json:"author"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Image) TableName() string {
	return "images"
}
