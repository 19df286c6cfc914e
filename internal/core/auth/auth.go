// Package auth verifies bearer tokens and enforces the admin role on HTTP routes.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solatis/segmentkeeper/internal/types"
	"go.uber.org/zap"
)

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Role  int
	Email string
}

// IsAdmin reports whether the principal may create segments and campaigns.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// OwnerID returns the identifier recorded on segments the principal creates.
func (p Principal) OwnerID() types.PrincipalID {
	return types.PrincipalID(p.ID)
}

// principalKey is the gin context key for the authenticated principal.
const principalKey = "segmentkeeper.principal"

// Authenticator validates HS256 bearer tokens against a shared key.
type Authenticator struct {
	key    []byte
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator for the given signing key.
func NewAuthenticator(key []byte, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{key: key, logger: logger}
}

// Authenticate extracts and verifies the bearer token from an Authorization header.
func (a *Authenticator) Authenticate(header string) (Principal, error) {
	token, ok := bearerToken(header)
	if !ok {
		return Principal{}, ErrMissingToken
	}
	return ParseToken(a.key, token)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid token and stores the principal.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			a.logger.Debug("authentication failed",
				zap.String("path", c.FullPath()),
				zap.Error(err))
			abort(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			abort(c, ErrMissingToken)
			return
		}
		if !principal.IsAdmin() {
			abort(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// PrincipalFromContext returns the principal stored by Middleware.
func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// StatusFor maps an authentication error onto its HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": err.Error()})
}
