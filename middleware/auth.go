package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"postapi/config"
)

const bearerPrefix = "Bearer "

// TokenVerifier decides whether a bearer token grants access.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) bool
}

// StaticVerifier accepts exactly one shared secret.
type StaticVerifier struct {
	token []byte
}

func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: []byte(token)}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) bool {
	return len(v.token) > 0 && subtle.ConstantTimeCompare(v.token, []byte(token)) == 1
}

// HashVerifier accepts the secret whose bcrypt hash it holds, so the
// plaintext never has to be configured.
type HashVerifier struct {
	hash []byte
}

func NewHashVerifier(hash string) *HashVerifier {
	return &HashVerifier{hash: []byte(hash)}
}

func (v *HashVerifier) Verify(_ context.Context, token string) bool {
	return bcrypt.CompareHashAndPassword(v.hash, []byte(token)) == nil
}

// JWTVerifier accepts unexpired HS256/384/512 tokens signed with secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) bool {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	return err == nil && token.Valid
}

// NewVerifier picks the verifier for the configured auth mode.
func NewVerifier(cfg config.AuthConfig) (TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthStatic, "":
		return NewStaticVerifier(cfg.Token), nil
	case config.AuthBcrypt:
		return NewHashVerifier(cfg.TokenHash), nil
	case config.AuthJWT:
		return NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// BearerAuth rejects requests without "Authorization: Bearer <token>" (400)
// or whose token the verifier refuses (401).
func BearerAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Authorization header missing",
				"message": "Format should be: Bearer <token>",
			})
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid authorization header",
				"message": "Format should be: Bearer <token>",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, bearerPrefix)
		if !verifier.Verify(c.Request.Context(), token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": "Token validation failed",
			})
			return
		}

		c.Next()
	}
}
