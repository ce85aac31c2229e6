package mw

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"housing-listings-backend/internal/auth"
)

const callerKey = "caller"

// Caller resolves the bearer token and request Origin into an auth.Caller.
// Requests without a token continue anonymously; a bad token is rejected.
func Caller(verifier *auth.Verifier, partnerOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var caller auth.Caller
		if header := c.GetHeader("Authorization"); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No bearer token"})
				return
			}
			var err error
			caller, err = verifier.Verify(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
		}
		if origin := c.GetHeader("Origin"); origin != "" {
			caller.PartnerOrigin = slices.Contains(partnerOrigins, strings.TrimSuffix(origin, "/"))
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller stored by Caller, or an anonymous caller.
func CallerFrom(c *gin.Context) auth.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(auth.Caller); ok {
			return caller
		}
	}
	return auth.Caller{}
}
