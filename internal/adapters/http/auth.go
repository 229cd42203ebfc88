package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClientTokenMiddleware tags every connection with a stable client token
// used as the gateway's connection id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func parseIdentity(secret, tokenStr string) (string, string, error) {
	if tokenStr == "" {
		return "", "", errors.New("token is empty")
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid claims")
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", "", errors.New("bad claims")
	}
	uname, _ := claims["uname"].(string)
	return uid, uname, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return h[7:]
	}
	return ""
}

// AuthMiddleware requires a verified identity. Identity verification is
// upstream's job; here we only check the signature and hand the trusted
// user id onward.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, uname, err := parseIdentity(secret, bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": true, "message": "Access denied."})
			return
		}
		c.Set("user_id", uid)
		c.Set("username", uname)
		c.Next()
	}
}

// OptionalAuthMiddleware binds identity when a valid token is present but
// lets anonymous connections through; they bind identity over the socket
// with register-user instead.
func OptionalAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if uid, uname, err := parseIdentity(secret, token); err == nil {
			c.Set("user_id", uid)
			c.Set("username", uname)
		}
		c.Next()
	}
}
