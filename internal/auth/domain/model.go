// Package domain contains core types for admin authentication.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// AdminUser is an account allowed into the admin console.
type AdminUser struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"column:email;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         Role         `gorm:"column:role;type:text;not null" json:"role"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (AdminUser) TableName() string { return "admin_users" }

// Session is the identity carried by a verified token.
type Session struct {
	UserID    snowflake.ID `json:"user_id"`
	Email     string       `json:"email"`
	Role      Role         `json:"role"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Subject is the authorization subject of the session.
func (s Session) Subject() string {
	return "user:" + s.UserID.String()
}
