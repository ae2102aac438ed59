package bankapi

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestApp builds an engine on a per-test in-memory database. A single
// connection keeps sqlite from returning busy errors under the concurrency
// tests.
func newTestApp(t *testing.T) *App {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return &App{
		Db: db,
		Settings: Settings{
			SuperAdminId: 42,
			RequestTTL:   DefaultRequestTTL,
		},
	}
}

// newFundedUser registers a user and credits it through the admin protocol
// so every balance in a test is backed by a ledger row.
func newFundedUser(t *testing.T, a *App, telegramId int64, nickname string, balance decimal.Decimal) *User {
	t.Helper()
	ctx := context.Background()
	user, err := a.RegisterUser(ctx, telegramId, fmt.Sprintf("user%d", telegramId), nickname, fmt.Sprintf("%d", telegramId))
	require.NoError(t, err)
	if balance.IsPositive() {
		admin := bootstrapAdmin(t, a)
		_, err = a.AdminAdjustBalance(ctx, admin.Id, user.Id, balance, true, "seed")
		require.NoError(t, err)
	}
	return user
}

func bootstrapAdmin(t *testing.T, a *App) *User {
	t.Helper()
	admin, err := a.GetOrCreateUser(context.Background(), a.Settings.SuperAdminId, "root")
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)
	return admin
}

func mustBalance(t *testing.T, a *App, userId uint) decimal.Decimal {
	t.Helper()
	balance, err := a.GetBalance(context.Background(), userId)
	require.NoError(t, err)
	return balance
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}
