package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/logger"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Msg: message})
}

// respondError maps err to a status and message. Unexpected errors are
// logged and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context(), log.Logger)
		l.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, message)
}

// mapDomainError maps domain errors to HTTP status codes and client messages.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBookNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrLoanNotFound):
		return http.StatusNotFound, "Loan not found"
	case errors.Is(err, domain.ErrBookUnavailable):
		return http.StatusBadRequest, "Book is not available"
	case errors.Is(err, domain.ErrNoOpenLoan):
		return http.StatusBadRequest, "No open loan for this book"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, "Token is not valid"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrUserHasOpenLoans):
		return http.StatusConflict, "User has open loans"
	case errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidAuthor),
		errors.Is(err, domain.ErrInvalidISBN),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrPasswordTooWeak),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidIDFormat):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// decodeJSON reads a bounded JSON body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// principal returns the caller set by the auth middleware.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return domain.Principal{}, false
	}
	return p, true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
