package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gamebank/internal/bankapi"
)

type createRequestParams struct {
	Requester int64            `json:"requester" binding:"required"` // telegram id
	Amount    *decimal.Decimal `json:"amount"`                       // nil = payer chooses
}

type redeemRequestParams struct {
	Payer  int64            `json:"payer" binding:"required"` // telegram id
	Amount *decimal.Decimal `json:"amount"`                   // required for open requests
}

// CreateRequest issues a payment-request token. The front-end turns the
// token into a deep link or QR code; the engine only ever sees the string.
func CreateRequest(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	var params createRequestParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requester, err := app.GetOrCreateUser(c, params.Requester, "")
	if err != nil {
		abortWithError(c, err)
		return
	}
	pr, err := app.CreatePaymentRequest(c, requester.Id, params.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pr)
}

// ValidateRequest reports whether a token is still redeemable. The engine
// does not say why a token is dead and neither do we.
func ValidateRequest(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	pr, err := app.GetValidPaymentRequest(c, c.Param("token"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// RedeemRequest pays the requester on behalf of the payer and burns the
// token. On insufficient funds the token survives for a later retry.
func RedeemRequest(c *gin.Context) {
	app := c.MustGet("app").(*bankapi.App)
	var params redeemRequestParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payer, err := app.GetUserByTelegramId(c, params.Payer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	paid, err := app.RedeemPaymentRequest(c, c.Param("token"), payer.Id, params.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paid": paid})
}
