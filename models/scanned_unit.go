package models

import "time"

// ScannedUnit is the claim record for one physical manufactured unit.
//
// UnitID carries the v4 UUID printed on the unit's warranty QR code. The
// unique index on it is the authoritative duplicate guard: two concurrent
// claims for the same unit race on the index, and the loser gets a
// duplicate-key error. Rows are created exactly once and never updated.
type ScannedUnit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UnitID      string    `gorm:"size:36;uniqueIndex;not null" json:"unit_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ProductName *string   `gorm:"size:128" json:"product_name"`
	ScannedAt   time.Time `gorm:"not null" json:"scanned_at"`
	CreatedAt   time.Time `json:"created_at"`
}
