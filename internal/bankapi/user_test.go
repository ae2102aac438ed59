package bankapi

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateUser(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	user, err := a.GetOrCreateUser(ctx, 1001, "alice")
	require.NoError(t, err)
	require.False(t, user.IsRegistered)
	require.False(t, user.IsAdmin)
	require.True(t, user.Balance.IsZero())

	again, err := a.GetOrCreateUser(ctx, 1001, "alice_renamed")
	require.NoError(t, err)
	require.Equal(t, user.Id, again.Id)
	require.Equal(t, "alice_renamed", again.Username)

	count := int64(0)
	require.NoError(t, a.Db.Model(&User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestBootstrapAdminFlag(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	admin, err := a.GetOrCreateUser(ctx, a.Settings.SuperAdminId, "root")
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)

	regular, err := a.GetOrCreateUser(ctx, 1001, "alice")
	require.NoError(t, err)
	require.False(t, regular.IsAdmin)

	// The flag survives registration.
	admin, err = a.RegisterUser(ctx, a.Settings.SuperAdminId, "root", "boss", "9000")
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)
	require.True(t, admin.IsRegistered)
}

func TestRegisterUser(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.RegisterUser(ctx, 1001, "alice", "", "77")
	require.Error(t, err)
	_, err = a.RegisterUser(ctx, 1001, "alice", "wanderer", " ")
	require.Error(t, err)

	user, err := a.RegisterUser(ctx, 1001, "alice", " wanderer ", " 77 ")
	require.NoError(t, err)
	require.True(t, user.IsRegistered)
	require.Equal(t, "wanderer", user.GameNickname)
	require.Equal(t, "77", user.GameId)
	require.True(t, user.IsActive())
}

func TestUserLookups(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	user, err := a.RegisterUser(ctx, 1001, "alice", "wanderer", "77")
	require.NoError(t, err)

	byNickname, err := a.GetUserByGameNickname(ctx, "wanderer")
	require.NoError(t, err)
	require.Equal(t, user.Id, byNickname.Id)

	byGameId, err := a.GetUserByGameId(ctx, "77")
	require.NoError(t, err)
	require.Equal(t, user.Id, byGameId.Id)

	_, err = a.GetUserByGameNickname(ctx, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = a.GetUserByTelegramId(ctx, 9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestNicknameLookupExcludesDeleted(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	admin := bootstrapAdmin(t, a)
	user, err := a.RegisterUser(ctx, 1001, "alice", "wanderer", "77")
	require.NoError(t, err)

	require.NoError(t, a.SetUserDeleted(ctx, admin.Id, user.Id, true))
	_, err = a.GetUserByGameNickname(ctx, "wanderer")
	require.ErrorIs(t, err, ErrUserNotFound)

	// The row itself stays, only new activity is blocked.
	kept, err := a.GetUserByTelegramId(ctx, 1001)
	require.NoError(t, err)
	require.True(t, kept.IsDeleted)
	require.False(t, kept.IsActive())

	require.NoError(t, a.SetUserDeleted(ctx, admin.Id, user.Id, false))
	_, err = a.GetUserByGameNickname(ctx, "wanderer")
	require.NoError(t, err)
}

func TestSetUserDeletedRequiresAdmin(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	alice, err := a.RegisterUser(ctx, 1001, "alice", "wanderer", "77")
	require.NoError(t, err)
	bob, err := a.RegisterUser(ctx, 1002, "bob", "drifter", "78")
	require.NoError(t, err)

	err = a.SetUserDeleted(ctx, alice.Id, bob.Id, true)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestListActivePlayers(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	admin := bootstrapAdmin(t, a)
	_, err := a.RegisterUser(ctx, 1001, "alice", "zeta", "1")
	require.NoError(t, err)
	bob, err := a.RegisterUser(ctx, 1002, "bob", "alpha", "2")
	require.NoError(t, err)
	_, err = a.GetOrCreateUser(ctx, 1003, "lurker") // never registered
	require.NoError(t, err)

	players, err := a.ListActivePlayers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, players, 2)
	require.Equal(t, "alpha", players[0].GameNickname)
	require.Equal(t, "zeta", players[1].GameNickname)

	require.NoError(t, a.SetUserDeleted(ctx, admin.Id, bob.Id, true))
	players, err = a.ListActivePlayers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, players, 1)
	require.Equal(t, "zeta", players[0].GameNickname)
}

func TestDeletedUserKeepsBalanceAndHistory(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	admin := bootstrapAdmin(t, a)
	alice := newFundedUser(t, a, 1001, "alice", decimal.RequireFromString("40"))

	require.NoError(t, a.SetUserDeleted(ctx, admin.Id, alice.Id, true))
	requireAmount(t, "40", mustBalance(t, a, alice.Id))
	count, err := a.CountTransactions(ctx, alice.Id)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
