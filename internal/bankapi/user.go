package bankapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	Id           uint            `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	TelegramId   int64           `json:"telegram_id" gorm:"uniqueIndex;not null"`
	Username     string          `json:"username"`
	GameNickname string          `json:"game_nickname" gorm:"index"`
	GameId       string          `json:"game_id" gorm:"column:camp_id;index"` // in-game numeric id, column kept for schema compatibility
	IsRegistered bool            `json:"is_registered"`
	IsDeleted    bool            `json:"is_deleted" gorm:"index"`
	IsAdmin      bool            `json:"is_admin"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:numeric(18,2);not null;default:0"`
}

// IsActive reports whether the user may participate in new transfers and
// payment requests. Historical ledger rows of inactive users stay visible.
func (u *User) IsActive() bool {
	return u.IsRegistered && !u.IsDeleted
}

func (a *App) GetUserByTelegramId(ctx context.Context, telegramId int64) (*User, error) {
	var user User
	res := a.Db.WithContext(ctx).Where("telegram_id = ?", telegramId).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user by telegram id: %w", res.Error)
	}
	return &user, nil
}

func (a *App) GetUserById(ctx context.Context, id uint) (*User, error) {
	var user User
	res := a.Db.WithContext(ctx).Where("id = ?", id).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", res.Error)
	}
	return &user, nil
}

func (a *App) GetUserByGameId(ctx context.Context, gameId string) (*User, error) {
	var user User
	res := a.Db.WithContext(ctx).Where("camp_id = ?", strings.TrimSpace(gameId)).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user by game id: %w", res.Error)
	}
	return &user, nil
}

// GetUserByGameNickname resolves an active user by the nickname other
// players see. Deleted and unregistered users are excluded so they cannot
// receive new transfers.
func (a *App) GetUserByGameNickname(ctx context.Context, nickname string) (*User, error) {
	var user User
	res := a.Db.WithContext(ctx).
		Where("game_nickname = ? AND is_registered = ? AND is_deleted = ?", strings.TrimSpace(nickname), true, false).
		First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user by nickname: %w", res.Error)
	}
	return &user, nil
}

// GetOrCreateUser returns the user with the given telegram id, refreshing a
// changed username on the way. A missing user is created unregistered with a
// zero balance; the bootstrap admin gets IsAdmin at this point and keeps it.
func (a *App) GetOrCreateUser(ctx context.Context, telegramId int64, username string) (*User, error) {
	user, err := a.GetUserByTelegramId(ctx, telegramId)
	if err == nil {
		if username != "" && user.Username != username {
			user.Username = username
			if res := a.Db.WithContext(ctx).Save(user); res.Error != nil {
				return nil, fmt.Errorf("refresh username: %w", res.Error)
			}
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &User{
		TelegramId: telegramId,
		Username:   username,
		IsAdmin:    a.Settings.SuperAdminId != 0 && a.Settings.SuperAdminId == telegramId,
		Balance:    decimal.Zero,
	}
	if res := a.Db.WithContext(ctx).Create(user); res.Error != nil {
		return nil, fmt.Errorf("create user: %w", res.Error)
	}
	return user, nil
}

// RegisterUser completes registration with the nickname and in-game number
// collected by the front-end. Idempotent for an already registered user.
func (a *App) RegisterUser(ctx context.Context, telegramId int64, username string, nickname string, gameId string) (*User, error) {
	nickname = strings.TrimSpace(nickname)
	gameId = strings.TrimSpace(gameId)
	if nickname == "" || gameId == "" {
		return nil, fmt.Errorf("registration needs a nickname and a game id")
	}

	user, err := a.GetOrCreateUser(ctx, telegramId, username)
	if err != nil {
		return nil, err
	}
	user.GameNickname = nickname
	user.GameId = gameId
	user.IsRegistered = true
	if a.Settings.SuperAdminId != 0 && a.Settings.SuperAdminId == telegramId {
		user.IsAdmin = true
	}
	if res := a.Db.WithContext(ctx).Save(user); res.Error != nil {
		return nil, fmt.Errorf("register user: %w", res.Error)
	}
	return user, nil
}

// ListActivePlayers returns registered, non-deleted users ordered by
// nickname, for the admin panel.
func (a *App) ListActivePlayers(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var users []User
	res := a.Db.WithContext(ctx).
		Where("is_registered = ? AND is_deleted = ?", true, false).
		Order("game_nickname").
		Limit(limit).
		Find(&users)
	if res.Error != nil {
		return nil, fmt.Errorf("list players: %w", res.Error)
	}
	return users, nil
}

// SetUserDeleted flips the soft-delete flag. Admin only; the row and its
// ledger history are never removed.
func (a *App) SetUserDeleted(ctx context.Context, adminId uint, targetId uint, deleted bool) error {
	admin, err := a.GetUserById(ctx, adminId)
	if err != nil {
		return err
	}
	if !admin.IsAdmin {
		return ErrUnauthorized
	}
	res := a.Db.WithContext(ctx).Model(&User{}).Where("id = ?", targetId).Update("is_deleted", deleted)
	if res.Error != nil {
		return fmt.Errorf("update delete flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
