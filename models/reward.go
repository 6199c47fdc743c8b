package models

import "time"

// Reward is a catalogue entry installers can spend points on.
type Reward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CostPoints  int       `gorm:"not null" json:"cost_points"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductPoint overrides the default scan reward for a specific product name
// as resolved by the manufacturing registry. Absent row means the configured
// default amount applies.
type ProductPoint struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductName string    `gorm:"size:128;uniqueIndex;not null" json:"product_name"`
	Points      int       `gorm:"not null" json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}
