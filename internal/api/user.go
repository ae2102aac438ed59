package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gamebank/internal/bankapi"
)

type touchParams struct {
	TelegramId int64  `json:"telegram_id" binding:"required"`
	Username   string `json:"username" validate:"max=255"`
}

type registerParams struct {
	TelegramId   int64  `json:"telegram_id" binding:"required"`
	Username     string `json:"username" validate:"max=255"`
	GameNickname string `json:"game_nickname" binding:"required" validate:"required,max=255"`
	GameId       string `json:"game_id" binding:"required" validate:"required,max=64"`
}

func telegramIdParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("telegramId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram id"})
		return 0, false
	}
	return id, true
}

// TouchUser is the idempotent first-contact endpoint: returns the user,
// creating an unregistered one with a zero balance if needed.
func TouchUser(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	var params touchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := app.GetOrCreateUser(c, params.TelegramId, params.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterUser completes registration with the nickname and game id the
// front-end collected.
func RegisterUser(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	var params registerParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := app.RegisterUser(c, params.TelegramId, params.Username, params.GameNickname, params.GameId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func GetUser(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	telegramId, ok := telegramIdParam(c)
	if !ok {
		return
	}
	user, err := app.GetUserByTelegramId(c, telegramId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// LookupUser resolves an active user by game nickname or game id, for the
// front-end's "send to player" flow.
func LookupUser(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	if nickname := c.Query("nickname"); nickname != "" {
		user, err := app.GetUserByGameNickname(c, nickname)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}
	if gameId := c.Query("game_id"); gameId != "" {
		user, err := app.GetUserByGameId(c, gameId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "nickname or game_id is required"})
}

func GetBalance(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	telegramId, ok := telegramIdParam(c)
	if !ok {
		return
	}
	user, err := app.GetUserByTelegramId(c, telegramId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	balance, err := app.GetBalance(c, user.Id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"telegram_id": user.TelegramId, "balance": balance})
}

func GetPlayersList(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	players, err := app.ListActivePlayers(c, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}
