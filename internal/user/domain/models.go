// Package domain contains persistence models for user accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role controls what a user may do through the API.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAffiliate Role = "affiliate"
	RoleCustomer  Role = "customer"
)

// User is an account that can sign in.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	FullName     string       `json:"full_name"`
	Role         Role         `gorm:"type:text;not null;default:affiliate" json:"role"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
