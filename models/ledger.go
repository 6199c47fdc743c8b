package models

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidKind   = errors.New("transaction kind must be EARNING or REDEMPTION")
	ErrInvalidAmount = errors.New("transaction amount must be positive")
)

// AppendTransaction inserts one immutable ledger row. Callers must run it
// inside the same gorm transaction as SyncUserBalance so the row and the
// cached balance commit or roll back together.
func AppendTransaction(tx *gorm.DB, userID uint, kind string, amount int, description string, metadata map[string]any) (*Transaction, error) {
	if kind != TransactionEarning && kind != TransactionRedemption {
		return nil, ErrInvalidKind
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	meta := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		meta = string(b)
	}

	record := Transaction{
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Metadata:    meta,
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// RecomputeBalance derives the user's point balance from the full ledger:
// sum(EARNING) - sum(REDEMPTION). This is the sole source of truth for
// current points; users.points is only ever a copy of this value.
func RecomputeBalance(tx *gorm.DB, userID uint) (int, error) {
	var earned, redeemed int64
	if err := tx.Model(&Transaction{}).
		Where("user_id = ? AND kind = ?", userID, TransactionEarning).
		Select("COALESCE(SUM(amount),0)").
		Scan(&earned).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&Transaction{}).
		Where("user_id = ? AND kind = ?", userID, TransactionRedemption).
		Select("COALESCE(SUM(amount),0)").
		Scan(&redeemed).Error; err != nil {
		return 0, err
	}
	return int(earned - redeemed), nil
}

// EarningCount returns the number of EARNING rows for a user. Each earning
// from a scan corresponds to one installed unit, so badge rules treat this
// as the installation count.
func EarningCount(tx *gorm.DB, userID uint) (int, error) {
	var n int64
	if err := tx.Model(&Transaction{}).
		Where("user_id = ? AND kind = ?", userID, TransactionEarning).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// SyncUserBalance refreshes the cached points/level columns from a full
// ledger recomputation and returns the new balance. It is the only writer of
// those columns; incrementing them in place is how balances drift.
func SyncUserBalance(tx *gorm.DB, userID uint) (int, error) {
	balance, err := RecomputeBalance(tx, userID)
	if err != nil {
		return 0, err
	}
	if err := tx.Model(&User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"points":     balance,
			"level":      LevelForPoints(balance),
			"updated_at": time.Now(),
		}).Error; err != nil {
		return 0, err
	}
	return balance, nil
}

// RecomputeUserBadges rebuilds the user's badge cache from ledger-derived
// stats. Called after every balance-affecting append; assignments gained or
// lost since the last recomputation are inserted or removed accordingly.
func RecomputeUserBadges(tx *gorm.DB, userID uint) error {
	balance, err := RecomputeBalance(tx, userID)
	if err != nil {
		return err
	}
	installs, err := EarningCount(tx, userID)
	if err != nil {
		return err
	}
	stats := UserStats{Points: balance, Installs: installs}

	var badges []Badge
	if err := tx.Where("is_active = ?", true).Find(&badges).Error; err != nil {
		return err
	}

	earned := map[uint]bool{}
	for _, b := range EvaluateBadges(badges, stats) {
		earned[b.ID] = true
	}

	var current []UserBadge
	if err := tx.Where("user_id = ?", userID).Find(&current).Error; err != nil {
		return err
	}
	have := map[uint]bool{}
	for _, ub := range current {
		have[ub.BadgeID] = true
		if !earned[ub.BadgeID] {
			if err := tx.Delete(&UserBadge{}, ub.ID).Error; err != nil {
				return err
			}
		}
	}
	now := time.Now()
	for badgeID := range earned {
		if have[badgeID] {
			continue
		}
		assignment := UserBadge{UserID: userID, BadgeID: badgeID, EarnedAt: now}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
	}
	return nil
}
