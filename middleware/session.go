package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"postapi/database"
)

const connKey = "postapi.conn"

// StoreSession acquires a store connection for the request and releases it
// when the handler chain returns, including when it fails or panics.
func StoreSession(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := store.Acquire(context.Background())
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("acquire store connection")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Store unavailable"})
			return
		}
		defer conn.Release(context.Background())

		c.Set(connKey, conn)
		c.Next()
	}
}

// Conn returns the connection StoreSession attached to c, or nil.
func Conn(c *gin.Context) database.Conn {
	v, ok := c.Get(connKey)
	if !ok {
		return nil
	}
	conn, _ := v.(database.Conn)
	return conn
}
