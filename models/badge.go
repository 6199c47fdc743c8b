package models

import "time"

// Badge is an achievement with optional threshold criteria. A nil threshold
// imposes no constraint; a badge with no thresholds at all is always earned.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	MinPoints   *int      `json:"min_points"`
	MinInstalls *int      `json:"min_installs"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserBadge caches a badge assignment. It is a recomputable projection, fully
// rebuilt by RecomputeUserBadges after every ledger append, never flipped
// independently.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"index:idx_user_badge,unique;not null" json:"user_id"`
	BadgeID  uint      `gorm:"index:idx_user_badge,unique;not null" json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`

	Badge Badge `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"badge"`
}

// UserStats are the ledger-derived aggregates badges are evaluated against.
type UserStats struct {
	Points   int
	Installs int
}

// BadgeEarned reports whether every present threshold of the badge is met.
func BadgeEarned(b Badge, stats UserStats) bool {
	if b.MinPoints != nil && stats.Points < *b.MinPoints {
		return false
	}
	if b.MinInstalls != nil && stats.Installs < *b.MinInstalls {
		return false
	}
	return true
}

// EvaluateBadges returns the subset of active badges the stats currently earn.
// Pure; recomputed on demand.
func EvaluateBadges(badges []Badge, stats UserStats) []Badge {
	earned := make([]Badge, 0, len(badges))
	for _, b := range badges {
		if !b.IsActive {
			continue
		}
		if BadgeEarned(b, stats) {
			earned = append(earned, b)
		}
	}
	return earned
}
