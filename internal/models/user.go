package models

import (
	"strings"

	"gorm.io/gorm"
)

// Role is the campus role of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleAdmin   Role = "admin"
)

// User represents a user in the system.
// Relationships are not stored on the user; see Connection.
type User struct {
	gorm.Model
	Name         string   `gorm:"size:255;not null"`
	Email        string   `gorm:"size:255;unique;not null"`
	Handle       string   `gorm:"size:64;unique;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         Role     `gorm:"size:50;not null;default:'student';index"`
	AvatarURL    string   `gorm:"size:1024"`
	Bio          string   `gorm:"size:160"`
	Department   string   `gorm:"size:255"`
	Batch        string   `gorm:"size:32"`
	GithubURL    string   `gorm:"size:512"`
	Skills       []string `gorm:"type:text;serializer:json"`
	Interests    []string `gorm:"type:text;serializer:json"`
}

// AdminHandle is the handle given to the seeded administrator. Registration
// cannot claim it.
const AdminHandle = "admin"

// NormalizeEmail is the stored and looked-up form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeHandle is the stored and looked-up form of a handle.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// IsReservedHandle reports whether handle is kept for system accounts.
func IsReservedHandle(handle string) bool {
	return NormalizeHandle(handle) == AdminHandle
}
