package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gamebank/internal/app"
	"gamebank/internal/bankapi"
	"gamebank/internal/worker"
)

type transferParams struct {
	From        int64           `json:"from" binding:"required"` // sender telegram id
	To          int64           `json:"to" binding:"required"`   // recipient telegram id
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description" validate:"max=255"`
}

type adjustParams struct {
	Admin       int64           `json:"admin" binding:"required"`
	Target      int64           `json:"target" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	IsCredit    *bool           `json:"is_credit" binding:"required"`
	Description string          `json:"description" validate:"max=255"`
}

type opsNotifyTask struct {
	msg string
}

func (t opsNotifyTask) Execute() {
	if err := bankapi.SendTelegramMessage(t.msg, "finance"); err != nil {
		fmt.Println("ops notify:", err)
	}
}

// Transfer moves funds between two users resolved by telegram id.
func Transfer(c *gin.Context) {
	appCtx := c.MustGet("app").(*bankapi.App)
	var params transferParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, err := appCtx.GetUserByTelegramId(c, params.From)
	if err != nil {
		abortWithError(c, err)
		return
	}
	recipient, err := appCtx.GetUserByTelegramId(c, params.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	record, err := appCtx.Transfer(c, sender.Id, recipient.Id, params.Amount, params.Description)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": record})
}

// Adjust is the admin credit/debit endpoint. The capability check happens in
// the engine against the stored admin flag; a debit may drive the target
// negative. Every adjustment is reported to the finance channel.
func Adjust(c *gin.Context) {
	appCtx := c.MustGet("app").(*bankapi.App)
	var params adjustParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, err := appCtx.GetUserByTelegramId(c, params.Admin)
	if err != nil {
		abortWithError(c, err)
		return
	}
	target, err := appCtx.GetUserByTelegramId(c, params.Target)
	if err != nil {
		abortWithError(c, err)
		return
	}
	record, err := appCtx.AdminAdjustBalance(c, admin.Id, target.Id, params.Amount, *params.IsCredit, params.Description)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if pool, ok := c.Get("pool"); ok {
		verb := "CREDITED"
		if !*params.IsCredit {
			verb = "DEBITED"
		}
		msg := fmt.Sprintf(
			`%s %s
Admin: %d
Target: %d
Time: %s`,
			verb,
			bankapi.EscapeMarkdownV2(record.Amount.StringFixed(2)),
			admin.TelegramId,
			target.TelegramId,
			bankapi.EscapeMarkdownV2(app.CurrentMessageTime()),
		)
		pool.(*worker.Pool).Exec(opsNotifyTask{msg: msg})
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": record})
}

// GetTransactionsList returns a user's ledger history, most recent first,
// both parties included for display.
func GetTransactionsList(c *gin.Context) {
	appCtx := c.MustGet("app").(*bankapi.App)
	telegramId, ok := telegramIdParam(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	user, err := appCtx.GetUserByTelegramId(c, telegramId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	transactions, err := appCtx.GetLastTransactions(c, user.Id, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}
