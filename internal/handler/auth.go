package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxBuyerID     = "buyer_id"
	ctxBuyerWallet = "buyer_wallet"
)

// Auth validates the buyer's bearer token (HS256) and stores the buyer id and
// wallet address on the request context. The subject claim carries the buyer
// id; "wallet" carries the mint recipient address.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		sub, err := claims.GetSubject()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		buyerID, err := strconv.Atoi(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		wallet, _ := claims["wallet"].(string)

		c.Set(ctxBuyerID, buyerID)
		c.Set(ctxBuyerWallet, wallet)
		c.Next()
	}
}

// CallbackAuth guards the internal worker callback with a shared token.
func CallbackAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Callback-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid callback token"})
			return
		}
		c.Next()
	}
}

func buyerFromContext(c *gin.Context) (int, string) {
	return c.GetInt(ctxBuyerID), c.GetString(ctxBuyerWallet)
}
