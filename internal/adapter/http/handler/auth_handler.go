package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/metrics"
)

// AccountService defines the behavior needed by AuthHandler.
type AccountService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Generate(user *domain.User) (string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	accounts AccountService
	tokens   TokenIssuer
	metrics  *metrics.Metrics
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts AccountService, tokens TokenIssuer, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		metrics:  m,
	}
}

// Register creates a member account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.accounts.Register(r.Context(), req.Username, req.Password); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MessageResponse{Msg: "User registered successfully"})
}

// Login checks credentials and issues a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.recordAttempt("failure", "invalid_credentials")
		} else {
			h.recordAttempt("error", "store")
		}
		respondError(w, r, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.recordAttempt("error", "token")
		respondError(w, r, err)
		return
	}
	h.recordAttempt("success", "")

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token: token,
		User:  dto.UserFromDomain(user),
	})
}

// Me returns the current caller. Known users are resolved to their stored
// account; the trusted system principal has none.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if p == domain.SystemPrincipal {
		writeJSON(w, http.StatusOK, dto.PrincipalResponse{ID: p.UserID, Role: p.Role})
		return
	}

	user, err := h.accounts.GetUser(r.Context(), p.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}

func (h *AuthHandler) recordAttempt(status, reason string) {
	if h.metrics == nil {
		return
	}
	h.metrics.AuthAttempts.WithLabelValues(status).Inc()
	if reason != "" {
		h.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}
