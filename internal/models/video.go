package models

import (
	"time"
)

// Video corresponds to the videos table. A row exists if and only if the
// matching remote file transfer completed successfully; the ingestion
// orchestrator is the single writer on the happy path.
//
// The composite unique index on (user_id, title) backs the duplicate-title
// rule at the store level, closing the window between the advisory check and
// the commit of a concurrent upload. Deletion removes the row for real,
// which frees the title for reuse by the same owner.
type Video struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"type:varchar(255);not null;uniqueIndex:idx_owner_title" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	UserID      uint64 `gorm:"not null;uniqueIndex:idx_owner_title" json:"user_id"`
	Username    string `gorm:"type:varchar(64);not null;index" json:"username"`

	// FileName is the generated remote object name:
	// <timestamp>_<owner>_<original-filename>.
	FileName string `gorm:"type:varchar(512);not null" json:"file_name"`

	Hidden  bool   `gorm:"not null;default:false" json:"hidden"`
	Blocked bool   `gorm:"not null;default:false" json:"blocked"`
	Views   uint64 `gorm:"not null;default:0" json:"views"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Comments []Comment `gorm:"foreignKey:VideoID" json:"comments"`
	User     *User     `gorm:"foreignKey:UserID" json:"-"`
}

func (Video) TableName() string {
	return "videos"
}

// Visible reports whether the video may be listed and watched.
func (v *Video) Visible() bool {
	return !v.Hidden && !v.Blocked
}
