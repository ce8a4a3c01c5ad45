package models

import (
	"time"
)

// Profile represents an authenticated user's profile
type Profile struct {
	ID          string    `gorm:"type:uuid;primaryKey;column:id"`
	DisplayName string    `gorm:"type:varchar(64);not null;default:'';column:display_name"`
	Role        string    `gorm:"type:varchar(16);not null;default:'user';column:role"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Role constants
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether the profile carries the admin role claim
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
