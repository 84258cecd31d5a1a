package handler

import (
	"context"
	"net/http"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// ReconciliationService defines the behavior needed by LedgerHandler.
type ReconciliationService interface {
	CheckConsistency(ctx context.Context) (*usecase.ReconciliationReport, error)
	Repair(ctx context.Context, actor domain.Principal) (*usecase.ReconciliationReport, error)
}

// LedgerHandler compares availability flags with the loan ledger.
type LedgerHandler struct {
	reconciliation ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliation ReconciliationService) *LedgerHandler {
	return &LedgerHandler{reconciliation: reconciliation}
}

// CheckConsistency reports drift without changing anything. An inconsistent
// catalog answers 409 with the offending books.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliation.CheckConsistency(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.ReconciliationFromUseCase(report))
}

// Reconcile rewrites drifted availability flags from the ledger.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	report, err := h.reconciliation.Repair(r.Context(), actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report))
}
