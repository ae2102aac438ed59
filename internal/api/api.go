package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamebank/internal/bankapi"
)

// abortWithError maps engine failures onto HTTP statuses. Anything outside
// the taxonomy is a store-level failure: 503, safe to retry.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, bankapi.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, bankapi.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bankapi.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, bankapi.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, bankapi.ErrInvalidRequest):
		status = http.StatusGone
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
