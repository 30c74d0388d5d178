package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware checks the Authorization header against a single
// pre-issued static service token, HMAC-signed with secret. This mirrors
// the teacher's JWT-based session auth, scoped down to the one shared
// key the external interface calls for ("a single shared header-bearing
// key") instead of per-user issuance. An empty secret disables auth,
// matching local/dev configs that leave auth_token unset.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			respondError(c, 401, "missing bearer token")
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(header, prefix)
		_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			respondError(c, 401, "invalid or expired token")
			c.Abort()
			return
		}
		c.Next()
	}
}
