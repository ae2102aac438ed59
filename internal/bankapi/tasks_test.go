package bankapi

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestSweep(a *App) *AppSweep {
	return &AppSweep{Db: a.Db, Settings: a.Settings}
}

func TestPurgeDeadRequests(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	alice := newFundedUser(t, a, 1001, "alice", decimal.RequireFromString("50"))
	bob := newFundedUser(t, a, 1002, "bob", decimal.Zero)

	live, err := a.CreatePaymentRequest(ctx, bob.Id, nil)
	require.NoError(t, err)
	expired, err := a.CreatePaymentRequest(ctx, bob.Id, nil)
	require.NoError(t, err)
	expireRequest(t, a, expired.Id)
	used, err := a.CreatePaymentRequest(ctx, bob.Id, amountPtr("5"))
	require.NoError(t, err)
	_, err = a.RedeemPaymentRequest(ctx, used.Token, alice.Id, nil)
	require.NoError(t, err)

	purged, err := newTestSweep(a).PurgeDeadRequests(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, purged)

	_, err = a.GetValidPaymentRequest(ctx, live.Token)
	require.NoError(t, err)
	count := int64(0)
	require.NoError(t, a.Db.Model(&PaymentRequest{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestHandleRequestPurgeTask(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	bob := newFundedUser(t, a, 1002, "bob", decimal.Zero)
	sweep := newTestSweep(a)

	live, err := a.CreatePaymentRequest(ctx, bob.Id, nil)
	require.NoError(t, err)
	expired, err := a.CreatePaymentRequest(ctx, bob.Id, nil)
	require.NoError(t, err)
	expireRequest(t, a, expired.Id)

	// A still-redeemable request is left alone.
	task, err := NewRequestPurgeTask(live.Token)
	require.NoError(t, err)
	require.NoError(t, sweep.HandleRequestPurgeTask(ctx, task))
	_, err = a.GetValidPaymentRequest(ctx, live.Token)
	require.NoError(t, err)

	task, err = NewRequestPurgeTask(expired.Token)
	require.NoError(t, err)
	require.NoError(t, sweep.HandleRequestPurgeTask(ctx, task))
	count := int64(0)
	require.NoError(t, a.Db.Model(&PaymentRequest{}).Where("token = ?", expired.Token).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestHandleRequestPurgeTaskBadPayload(t *testing.T) {
	a := newTestApp(t)
	sweep := newTestSweep(a)

	task := asynq.NewTask(TypeRequestPurge, []byte("not json"))
	err := sweep.HandleRequestPurgeTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
