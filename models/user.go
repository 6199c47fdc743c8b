package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Installers scan units in the field; admins manage the program.
const (
	RoleInstaller = "installer"
	RoleAdmin     = "admin"
)

// User represents a program member. Passwords are stored as bcrypt hashes only.
//
// Points and Level are a denormalized projection of the transaction ledger.
// They are written exclusively by SyncUserBalance after a full recomputation;
// nothing else may touch them.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:32;default:'installer'" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	Points       int            `gorm:"default:0" json:"points"`
	Level        int            `gorm:"default:1" json:"level"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Transactions []Transaction  `json:"-"`
	ScannedUnits []ScannedUnit  `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// LevelForPoints maps a point balance to a display level.
func LevelForPoints(points int) int {
	switch {
	case points >= 5000:
		return 5
	case points >= 2000:
		return 4
	case points >= 500:
		return 3
	case points >= 100:
		return 2
	default:
		return 1
	}
}
