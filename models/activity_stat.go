package models

import "time"

// ActivityStat stores aggregated API request counts per day and route. It
// backs the ops stats endpoint; counts are upserted atomically.
type ActivityStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_activity_date_route,unique;type:date;not null" json:"date"`
	Route     string    `gorm:"index;index:idx_activity_date_route,unique;size:255;not null" json:"route"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
