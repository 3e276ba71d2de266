package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/cache"
)

const (
	CharIDKey    = "char_id"
	CharIDHeader = "X-Character-ID"

	knownCharTTL = 5 * time.Minute
)

// CharacterLookup reports an error when charID does not name a character.
type CharacterLookup func(ctx context.Context, charID int64) error

// Auth resolves the acting character from the X-Character-ID header.
// Characters seen recently are remembered in the cache so most requests
// skip the lookup.
func Auth(c cache.Cache, lookup CharacterLookup) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		charID, err := strconv.ParseInt(ctx.GetHeader(CharIDHeader), 10, 64)
		if err != nil || charID <= 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing character id"})
			return
		}

		key := "char:known:" + strconv.FormatInt(charID, 10)
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		known, err := c.Exists(cacheCtx, key)
		if err != nil || !known {
			if err := lookup(ctx.Request.Context(), charID); err != nil {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown character"})
				return
			}
			_ = c.Set(cacheCtx, key, "1", knownCharTTL)
		}

		ctx.Set(CharIDKey, charID)
		ctx.Next()
	}
}

// GetCharID retrieves the authenticated character ID from the Gin context.
func GetCharID(c *gin.Context) int64 {
	if v, exists := c.Get(CharIDKey); exists {
		return v.(int64)
	}
	return 0
}
