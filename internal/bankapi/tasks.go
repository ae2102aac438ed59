package bankapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRequestPurge = "request:purge"
	QueueHygiene     = "hygiene"
)

type RequestPurgePayload struct {
	Token string `json:"token"`
}

func NewRequestPurgeTask(token string) (*asynq.Task, error) {
	payload, err := json.Marshal(RequestPurgePayload{Token: token})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRequestPurge, payload), nil
}

// HandleRequestPurgeTask drops one payment request, but only once it is
// dead: used, or past its expiry. A still-redeemable request is left alone
// and the task retried later.
func (s *AppSweep) HandleRequestPurgeTask(ctx context.Context, t *asynq.Task) error {
	var payload RequestPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("request purge payload: %w: %w", err, asynq.SkipRetry)
	}
	now := time.Now().UTC()
	res := s.Db.WithContext(ctx).
		Where("token = ? AND (used = ? OR expires_at <= ?)", payload.Token, true, now).
		Delete(&PaymentRequest{})
	if res.Error != nil {
		return fmt.Errorf("purge request: %w", res.Error)
	}
	return nil
}

// PurgeDeadRequests is the catch-all sweep for rows whose per-token task got
// lost. Deletes nothing redeemable, so observable semantics never change.
func (s *AppSweep) PurgeDeadRequests(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res := s.Db.WithContext(ctx).
		Where("used = ? OR expires_at <= ?", true, now).
		Delete(&PaymentRequest{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge dead requests: %w", res.Error)
	}
	return res.RowsAffected, nil
}
