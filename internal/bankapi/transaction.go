package bankapi

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TxTypeTransfer    = "transfer"
	TxTypeAdminCredit = "admin_credit"
	TxTypeAdminDebit  = "admin_debit"
)

// Transaction is one append-only ledger row. FromUserId is nil for admin
// credits, ToUserId is nil for admin debits; rows are never updated or
// deleted after creation.
type Transaction struct {
	Id          uint            `json:"id" gorm:"primarykey"`
	CreatedAt   time.Time       `json:"created_at"`
	FromUserId  *uint           `json:"from_user_id" gorm:"index"`
	ToUserId    *uint           `json:"to_user_id" gorm:"index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(18,2);not null"`
	Type        string          `json:"type" gorm:"size:50;not null"`
	Description string          `json:"description" gorm:"size:255"`

	FromUser *User `json:"from_user,omitempty" gorm:"foreignKey:FromUserId"`
	ToUser   *User `json:"to_user,omitempty" gorm:"foreignKey:ToUserId"`
}

// GetLastTransactions returns the user's ledger rows most-recent-first with
// both parties preloaded for display.
func (a *App) GetLastTransactions(ctx context.Context, userId uint, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var transactions []Transaction
	res := a.Db.WithContext(ctx).
		Preload("FromUser").
		Preload("ToUser").
		Where("from_user_id = ? OR to_user_id = ?", userId, userId).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions)
	if res.Error != nil {
		return nil, fmt.Errorf("load transactions: %w", res.Error)
	}
	return transactions, nil
}

// CountTransactions reports how many ledger rows reference the user as
// either party.
func (a *App) CountTransactions(ctx context.Context, userId uint) (int64, error) {
	var count int64
	res := a.Db.WithContext(ctx).
		Model(&Transaction{}).
		Where("from_user_id = ? OR to_user_id = ?", userId, userId).
		Count(&count)
	if res.Error != nil {
		return 0, fmt.Errorf("count transactions: %w", res.Error)
	}
	return count, nil
}
