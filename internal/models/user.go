package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User corresponds to the users table.
type User struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email          string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string `gorm:"type:varchar(255);not null" json:"-"`
	Role           string `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Verified       bool   `gorm:"not null;default:false" json:"verified"`
	ProfilePicture string `gorm:"type:varchar(1024);default:''" json:"profile_picture"`

	// Rows are removed for real on account deletion so the username and
	// email become available again.
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Owned media; loaded on demand.
	Videos []Video `gorm:"foreignKey:UserID" json:"videos,omitempty"`
	Images []Image `gorm:"foreignKey:UserID" json:"images,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
