package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamebank/internal/api/jwt"
)

func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "jwt missing"})
			return
		}
		service, err := jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("service", service)
		c.Next()
	}
}
