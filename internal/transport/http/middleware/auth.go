package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Chung305/threadline/internal/domain"
)

const accountContextKey = "account"

// Verifier validates a bearer access token and resolves its account.
type Verifier interface {
	VerifyAccess(ctx context.Context, accessToken string) (*domain.Account, error)
}

// RequireAuth extracts the bearer token, verifies it (signature, expiry,
// revocation list), and injects the sanitized account into the request
// context for downstream handlers.
func RequireAuth(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "missing or invalid Authorization header", domain.KindNotAuthenticated)
			return
		}

		account, err := verifier.VerifyAccess(c.Request.Context(), tokenString)
		if err != nil {
			kind := domain.KindOf(err)
			status := http.StatusUnauthorized
			if kind == domain.KindUnknown {
				status = http.StatusInternalServerError
			}
			abort(c, status, err.Error(), kind)
			return
		}

		c.Set(accountContextKey, account)
		c.Next()
	}
}

// Authorize allows the request through when the authenticated account holds
// at least one of the given roles. It must run after RequireAuth.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := AccountFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "not authenticated", domain.KindNotAuthenticated)
			return
		}
		for _, role := range roles {
			if account.HasRole(role) {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "insufficient permissions", domain.KindNotAuthorized)
	}
}

// AccountFrom returns the account RequireAuth stored on the context.
func AccountFrom(c *gin.Context) (*domain.Account, bool) {
	val, exists := c.Get(accountContextKey)
	if !exists {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}

// BearerToken returns the token from the Authorization header, or "" when
// the header is absent or not a bearer scheme.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func abort(c *gin.Context, status int, message string, kind domain.ErrorKind) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "error": kind.String()})
}
