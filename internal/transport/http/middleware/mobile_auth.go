package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/security"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

// authFailures is checked in order; the first match wins.
var authFailures = []ErrorCase{
	{Err: usecase.ErrTokenMissing, Status: http.StatusUnauthorized, Code: CodeTokenMissing},
	{Err: security.ErrTokenExpired, Status: http.StatusUnauthorized, Code: CodeTokenExpired},
	{Err: security.ErrTokenMalformed, Status: http.StatusUnauthorized, Code: CodeTokenMalformed},
	{Err: security.ErrTokenNotActive, Status: http.StatusUnauthorized, Code: CodeTokenNotActive},
	{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Code: CodeUserNotFound},
	{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Code: CodeAccountDisabled},
	{Err: domain.ErrConfiguration, Status: http.StatusInternalServerError, Code: CodeServerConfig},
	{Err: domain.ErrAuthentication, Status: http.StatusUnauthorized, Code: CodeTokenInvalid},
}

// MobileAuthGate authenticates the bearer token and attaches the enriched
// identity to the request. Downstream handlers read it with GetAuthContext.
func (g *Gatekeeper) MobileAuthGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.authenticate(c) {
			c.Next()
		}
	}
}

// OptionalAuthGate lets requests without an Authorization header through
// anonymously. A header that is present must still authenticate; a bad token
// is refused exactly as MobileAuthGate refuses it.
func (g *Gatekeeper) OptionalAuthGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			c.Next()
			return
		}
		if g.authenticate(c) {
			c.Next()
		}
	}
}

// authenticate attaches the caller's identity or aborts the request.
func (g *Gatekeeper) authenticate(c *gin.Context) bool {
	if g.auth == nil {
		g.refuse(c, CheckMobileAuth, http.StatusInternalServerError, CodeServerConfig, "", nil)
		return false
	}

	token, code := bearerToken(c.GetHeader("Authorization"))
	if code != "" {
		g.refuse(c, CheckMobileAuth, http.StatusUnauthorized, code, "", nil)
		return false
	}

	auth, err := g.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		status, code := http.StatusInternalServerError, CodeAuthSystem
		for _, candidate := range authFailures {
			if errors.Is(err, candidate.Err) {
				status, code = candidate.Status, candidate.Code
				break
			}
		}
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		g.refuse(c, CheckMobileAuth, status, code, "", nil)
		return false
	}

	SetAuthContext(c, auth)
	g.allow(CheckMobileAuth)
	return true
}

// bearerToken extracts the token from an Authorization header value. The
// returned code is empty on success.
func bearerToken(header string) (string, string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", CodeTokenMissing
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", CodeTokenInvalid
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", CodeTokenMissing
	}
	return token, ""
}
