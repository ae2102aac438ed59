package bankapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetBalance re-reads the stored balance instead of trusting any in-memory
// copy; concurrent transfers may have moved it.
func (a *App) GetBalance(ctx context.Context, userId uint) (decimal.Decimal, error) {
	var user User
	res := a.Db.WithContext(ctx).Select("balance").Where("id = ?", userId).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("load balance: %w", res.Error)
	}
	return user.Balance, nil
}

// Transfer moves amount from one user to another. The balance check, both
// balance mutations and the ledger append commit together or not at all; an
// insufficient balance leaves every row untouched.
func (a *App) Transfer(ctx context.Context, fromId uint, toId uint, amount decimal.Decimal, description string) (*Transaction, error) {
	var record *Transaction
	err := a.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = transferInTx(tx, fromId, toId, amount, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.publishLedgerEvent(ctx, record)
	return record, nil
}

// transferInTx runs the transfer steps on an open transaction so that
// payment-request redemption can join them with the single-use flip.
//
// The overdraft guard is the conditional debit itself: the UPDATE only
// matches while balance >= amount, and its rows-affected result decides the
// outcome, so two concurrent transfers from one sender can never jointly
// overdraw the account. Balance rows are touched in ascending id order to
// keep opposite transfers from deadlocking.
func transferInTx(tx *gorm.DB, fromId uint, toId uint, amount decimal.Decimal, description string) (*Transaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	debit := func() error {
		res := tx.Model(&User{}).
			Where("id = ? AND balance >= ?", fromId, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("debit sender: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var sender User
			if err := tx.Select("id").Where("id = ?", fromId).First(&sender).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("load sender: %w", err)
			}
			return ErrInsufficientFunds
		}
		return nil
	}
	credit := func() error {
		res := tx.Model(&User{}).
			Where("id = ?", toId).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("credit recipient: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	}

	steps := []func() error{debit, credit}
	if toId < fromId {
		steps = []func() error{credit, debit}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	from, to := fromId, toId
	record := &Transaction{
		FromUserId:  &from,
		ToUserId:    &to,
		Amount:      amount,
		Type:        TxTypeTransfer,
		Description: description,
	}
	if res := tx.Create(record); res.Error != nil {
		return nil, fmt.Errorf("append ledger row: %w", res.Error)
	}
	return record, nil
}

// AdminAdjustBalance credits or debits one user unconditionally. The admin
// capability is re-read from the store, never trusted from the caller. A
// debit may drive the balance negative: that is the administrative override,
// unlike Transfer which never overdraws. The admin is recorded in the
// description only; the admin's own balance does not move.
func (a *App) AdminAdjustBalance(ctx context.Context, adminId uint, targetId uint, amount decimal.Decimal, isCredit bool, description string) (*Transaction, error) {
	var record *Transaction
	err := a.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin User
		if err := tx.Where("id = ?", adminId).First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load admin: %w", err)
		}
		if !admin.IsAdmin {
			return ErrUnauthorized
		}

		amount = amount.Round(2)
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}

		expr := gorm.Expr("balance + ?", amount)
		txType := TxTypeAdminCredit
		if !isCredit {
			expr = gorm.Expr("balance - ?", amount)
			txType = TxTypeAdminDebit
		}
		res := tx.Model(&User{}).Where("id = ?", targetId).Update("balance", expr)
		if res.Error != nil {
			return fmt.Errorf("adjust balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if description == "" {
			description = fmt.Sprintf("admin:%d", admin.TelegramId)
		}
		target := targetId
		record = &Transaction{
			Amount:      amount,
			Type:        txType,
			Description: description,
		}
		if isCredit {
			record.ToUserId = &target
		} else {
			record.FromUserId = &target
		}
		if res := tx.Create(record); res.Error != nil {
			return fmt.Errorf("append ledger row: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.publishLedgerEvent(ctx, record)
	return record, nil
}

// publishLedgerEvent pushes the committed ledger row to each party's
// notification channel. Best effort: listeners re-sync from the store anyway.
func (a *App) publishLedgerEvent(ctx context.Context, record *Transaction) {
	if a.Rdb == nil || record == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	seen := map[uint]bool{}
	for _, id := range []*uint{record.FromUserId, record.ToUserId} {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		a.Rdb.Publish(ctx, fmt.Sprintf("notification_ch@%d", *id), payload)
	}
}
