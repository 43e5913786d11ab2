package models

import (
	"time"
)

const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleHR, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"          json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `gorm:"index"                         json:"email"`
	PasswordHash string    `gorm:"not null"                      json:"-"`
	Credits      int       `gorm:"not null;check:credits >= 0" json:"credits"`
	Role         string    `gorm:"not null;default:employee"     json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type APIKey struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	UserID    uint      `gorm:"index;not null"      json:"user_id"`
	Key       string    `gorm:"column:api_key;uniqueIndex;not null" json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenIdentity names a token inside the revocation registry. It is kept
// apart from the encoded token so the registry can switch to a dedicated
// token id without touching its callers.
type TokenIdentity string

// RevokedToken is one row of the revocation registry. Identity is derived
// from the encoded token, never the token itself.
type RevokedToken struct {
	ID        uint       `gorm:"primaryKey"          json:"id"`
	Identity  string     `gorm:"uniqueIndex;size:64;not null" json:"identity"`
	ExpiresAt time.Time  `gorm:"index;not null"      json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

const (
	RequestTypeSupply      = "supply"
	RequestTypeMaintenance = "maintenance"

	RequestStatusPending = "pending"
)

type Request struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index;not null"           json:"user_id"`
	UserName    string    `json:"user_name"`
	Request     string    `gorm:"not null"                 json:"request"`
	RequestType string    `gorm:"not null;default:supply"  json:"request_type"`
	Status      string    `gorm:"not null;default:pending" json:"status"`
	IsAnonymous bool      `gorm:"default:false"            json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
