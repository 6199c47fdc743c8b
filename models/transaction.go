package models

import "time"

// Transaction kinds. Amounts are stored positive; the sign is implied by kind.
const (
	TransactionEarning    = "EARNING"
	TransactionRedemption = "REDEMPTION"
)

// Transaction is one immutable ledger entry. Rows are append-only: they are
// never updated or deleted, and a user's balance is always derivable as
// sum(EARNING) - sum(REDEMPTION) over their rows.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Kind        string    `gorm:"size:16;not null" json:"kind"`
	Amount      int       `gorm:"not null" json:"amount"`
	Description string    `gorm:"size:255" json:"description"`
	Metadata    string    `gorm:"type:text" json:"metadata"` // JSON object, free-form
	CreatedAt   time.Time `json:"created_at"`
}
