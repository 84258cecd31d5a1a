package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
)

// UserAdminService defines the behavior needed by UserHandler.
type UserAdminService interface {
	ListUsers(ctx context.Context, actor domain.Principal, limit, offset int) ([]*domain.User, error)
	DeleteUser(ctx context.Context, actor domain.Principal, id string) error
}

// UserHandler handles account management requests.
type UserHandler struct {
	users UserAdminService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserAdminService) *UserHandler {
	return &UserHandler{users: users}
}

// List lists accounts.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	users, err := h.users.ListUsers(r.Context(), actor, parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UsersFromDomain(users))
}

// Delete removes an account without open loans.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), actor, chi.URLParam(r, "userId")); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Msg: "User removed"})
}
