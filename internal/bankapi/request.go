package bankapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dchest/uniuri"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRequest is a single-use capability token: whoever holds the token
// may pay the requester, there is no second credential. A nil Amount means
// the payer chooses the amount at redemption time.
type PaymentRequest struct {
	Id          uint             `json:"id" gorm:"primarykey"`
	Token       string           `json:"token" gorm:"uniqueIndex;size:128;not null"`
	RequesterId uint             `json:"requester_id" gorm:"index;not null"`
	Amount      *decimal.Decimal `json:"amount" gorm:"type:numeric(18,2)"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Used        bool             `json:"used"`

	Requester *User `json:"requester,omitempty" gorm:"foreignKey:RequesterId"`
}

// Redeemable reports whether the request can still be paid at the given
// instant. Expiry is evaluated lazily by timestamp, never by eviction.
func (pr *PaymentRequest) Redeemable(now time.Time) bool {
	return !pr.Used && now.Before(pr.ExpiresAt)
}

// NewRequestToken draws a fresh URL-safe token from crypto/rand. The token
// is the sole access control on a request, so it must stay unguessable.
func NewRequestToken() string {
	return uniuri.NewLen(24)
}

// CreatePaymentRequest issues a token that lets anyone pay the requester
// within the configured window. The eventual purge of the dead row is
// scheduled through asynq when a client is attached; correctness never
// depends on it.
func (a *App) CreatePaymentRequest(ctx context.Context, requesterId uint, amount *decimal.Decimal) (*PaymentRequest, error) {
	var requester User
	res := a.Db.WithContext(ctx).Where("id = ? AND is_deleted = ?", requesterId, false).First(&requester)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load requester: %w", res.Error)
	}

	if amount != nil {
		rounded := amount.Round(2)
		if !rounded.IsPositive() {
			return nil, ErrInvalidAmount
		}
		amount = &rounded
	}

	now := time.Now().UTC()
	pr := &PaymentRequest{
		Token:       NewRequestToken(),
		RequesterId: requester.Id,
		Amount:      amount,
		CreatedAt:   now,
		ExpiresAt:   now.Add(a.Settings.RequestTTL),
		Used:        false,
	}
	if res := a.Db.WithContext(ctx).Create(pr); res.Error != nil {
		return nil, fmt.Errorf("create payment request: %w", res.Error)
	}

	if a.Aqc != nil {
		task, err := NewRequestPurgeTask(pr.Token)
		if err == nil {
			// Purge shortly after expiry; a lost task only leaves a dead row.
			a.Aqc.Enqueue(task, asynq.Queue(QueueHygiene), asynq.ProcessIn(a.Settings.RequestTTL+time.Minute))
		}
	}
	return pr, nil
}

// GetValidPaymentRequest returns the request only while it is redeemable.
// Unknown, expired and already-used tokens all collapse into
// ErrInvalidRequest; the caller has no business telling them apart.
func (a *App) GetValidPaymentRequest(ctx context.Context, token string) (*PaymentRequest, error) {
	var pr PaymentRequest
	res := a.Db.WithContext(ctx).Where("token = ?", token).First(&pr)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRequest
		}
		return nil, fmt.Errorf("load payment request: %w", res.Error)
	}
	if !pr.Redeemable(time.Now().UTC()) {
		return nil, ErrInvalidRequest
	}
	return &pr, nil
}

// RedeemPaymentRequest pays the requester on behalf of the payer and burns
// the token, all in one transaction. The conditional used=false flip is the
// sole arbiter between concurrent redeemers: exactly one UPDATE matches.
// If the transfer fails on funds the whole transaction rolls back and the
// request stays redeemable until it expires.
func (a *App) RedeemPaymentRequest(ctx context.Context, token string, payerId uint, amount *decimal.Decimal) (decimal.Decimal, error) {
	var paid decimal.Decimal
	var record *Transaction
	err := a.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pr PaymentRequest
		if err := tx.Where("token = ?", token).First(&pr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRequest
			}
			return fmt.Errorf("load payment request: %w", err)
		}
		if !pr.Redeemable(time.Now().UTC()) {
			return ErrInvalidRequest
		}

		res := tx.Model(&PaymentRequest{}).
			Where("id = ? AND used = ?", pr.Id, false).
			Update("used", true)
		if res.Error != nil {
			return fmt.Errorf("mark request used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent redeemer won the flip.
			return ErrInvalidRequest
		}

		var requester User
		if err := tx.Where("id = ? AND is_deleted = ?", pr.RequesterId, false).First(&requester).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRequest
			}
			return fmt.Errorf("load requester: %w", err)
		}

		switch {
		case pr.Amount != nil:
			paid = *pr.Amount
		case amount != nil:
			paid = amount.Round(2)
		default:
			return ErrInvalidAmount
		}

		var err error
		record, err = transferInTx(tx, payerId, requester.Id, paid, "request:"+pr.Token)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	a.publishLedgerEvent(ctx, record)
	return paid, nil
}
