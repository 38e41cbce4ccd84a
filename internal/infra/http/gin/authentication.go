package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/domain/identity"
	"carrental/internal/infra/security"
)

const principalContextKey = "carrental.principal"

// AuthMiddleware resolves bearer tokens into principals. Requests without a
// valid token proceed anonymously; route handlers decide what that means.
type AuthMiddleware struct {
	Codec  security.TokenCodec
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.Next()
		return
	}
	p, err := m.Codec.Resolve(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, p)
	c.Next()
}

func currentPrincipal(c *gin.Context) identity.Principal {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return identity.Principal{}
	}
	p, ok := val.(identity.Principal)
	if !ok {
		return identity.Principal{}
	}
	return p
}

func requirePrincipal(c *gin.Context) (identity.Principal, bool) {
	p := currentPrincipal(c)
	if p.Anonymous() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return identity.Principal{}, false
	}
	return p, true
}

func requireAdmin(c *gin.Context) (identity.Principal, bool) {
	p, ok := requirePrincipal(c)
	if !ok {
		return identity.Principal{}, false
	}
	if !p.Admin {
		c.JSON(http.StatusForbidden, gin.H{"error": identity.ErrNotAdministrator.Error()})
		return identity.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
