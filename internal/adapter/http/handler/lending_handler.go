package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// LendingService defines the behavior needed by LendingHandler.
type LendingService interface {
	Borrow(ctx context.Context, input usecase.BorrowInput) (*domain.Loan, error)
	Return(ctx context.Context, input usecase.ReturnInput) (*domain.Loan, error)
	CollectHistory(ctx context.Context, input usecase.HistoryInput) ([]*domain.LoanRecord, error)
	IsBorrowedBy(ctx context.Context, userID, bookID string) (bool, error)
	OpenLoans(ctx context.Context, actor domain.Principal, userID string) ([]*domain.Loan, error)
}

// LendingHandler handles borrow and return requests.
type LendingHandler struct {
	lending LendingService
}

// NewLendingHandler creates a new LendingHandler.
func NewLendingHandler(lending LendingService) *LendingHandler {
	return &LendingHandler{lending: lending}
}

// Borrow checks a book out to a user.
func (h *LendingHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.LoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loan, err := h.lending.Borrow(r.Context(), req.ToBorrowInput(actor))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanOutcomeResponse{
		Msg:  "Book borrowed successfully",
		Loan: dto.LoanFromDomain(loan),
	})
}

// Return closes the user's open loan on a book.
func (h *LendingHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.LoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loan, err := h.lending.Return(r.Context(), req.ToReturnInput(actor))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanOutcomeResponse{
		Msg:  "Book returned successfully",
		Loan: dto.LoanFromDomain(loan),
	})
}

// History lists a user's loans, most recent first.
func (h *LendingHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	records, err := h.lending.CollectHistory(r.Context(), usecase.HistoryInput{
		Actor:    actor,
		UserID:   chi.URLParam(r, "userId"),
		PageSize: parseIntQuery(r, "pageSize", 0),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryFromDomain(records))
}

// OpenLoans lists the loans a user has not returned yet.
func (h *LendingHandler) OpenLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	loans, err := h.lending.OpenLoans(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoansFromDomain(loans))
}

// IsBorrowed reports whether the user currently holds the book.
func (h *LendingHandler) IsBorrowed(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "userId")
	if !actor.CanActFor(userID) {
		respondError(w, r, domain.ErrForbidden)
		return
	}

	borrowed, err := h.lending.IsBorrowedBy(r.Context(), userID, chi.URLParam(r, "bookId"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BorrowedResponse{Borrowed: borrowed})
}
