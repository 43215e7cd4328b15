package httpx

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
)

const identityKey = "identity"

// Verifier checks a bearer token.
type Verifier interface {
	Verify(token string) (identity.Identity, error)
}

// AuthGuard requires "Authorization: Bearer <token>" and exposes the caller
// through CurrentIdentity and identity.FromContext.
func AuthGuard(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			Fail(c, apperr.New(apperr.Unauthorized, "Authorization header not found"))
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			Fail(c, apperr.New(apperr.Unauthorized, "Invalid token"))
			return
		}
		id, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(identity.NewContext(c.Request.Context(), id))
		c.Next()
	}
}

// AdminGuard must run after AuthGuard.
func AdminGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || !id.IsAdmin {
			Fail(c, apperr.New(apperr.Unauthorized, "Permission denied"))
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}
