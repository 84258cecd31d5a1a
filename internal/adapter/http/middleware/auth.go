package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/auth"
	"github.com/iho/booklend/internal/infrastructure/logger"
)

// TokenHeader is the alternative header carrying a bare token.
const TokenHeader = "x-auth-token"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// Authenticator resolves the caller of each request into a domain.Principal.
type Authenticator struct {
	verifier TokenVerifier
	trusted  bool
}

// NewAuthenticator creates an Authenticator that verifies tokens.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// NewTrustedAuthenticator treats every request as the system admin. It is
// used when authentication is disabled in configuration.
func NewTrustedAuthenticator() *Authenticator {
	return &Authenticator{trusted: true}
}

// Require rejects requests without a valid token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.trusted {
			next.ServeHTTP(w, withPrincipal(r, domain.SystemPrincipal))
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		claims, err := a.verifier.Verify(token)
		if err != nil {
			msg := "Token is not valid"
			if errors.Is(err, domain.ErrExpiredToken) {
				msg = "Token has expired"
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, withPrincipal(r, claims.Principal()))
	})
}

// Optional attaches the caller when a valid token is present and lets the
// request through either way.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.trusted {
			next.ServeHTTP(w, withPrincipal(r, domain.SystemPrincipal))
			return
		}

		if token := extractToken(r); token != "" {
			if claims, err := a.verifier.Verify(token); err == nil {
				r = withPrincipal(r, claims.Principal())
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers without the given role. It must run after
// Require.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := domain.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			if p.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withPrincipal(r *http.Request, p domain.Principal) *http.Request {
	ctx := domain.ContextWithPrincipal(r.Context(), p)
	ctx = logger.WithUserID(ctx, p.UserID)
	return r.WithContext(ctx)
}

// extractToken reads "Authorization: Bearer <t>" first, then x-auth-token.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}
