package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

func createJSONHTTPRequest(method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// stubAuth injects a fixed buyer identity, standing in for the JWT middleware.
func stubAuth(buyerID int, wallet string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("buyer_id", buyerID)
		c.Set("buyer_wallet", wallet)
		c.Next()
	}
}
