package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

type userAdminStub struct {
	listFn   func(ctx context.Context, actor domain.Principal, limit, offset int) ([]*domain.User, error)
	deleteFn func(ctx context.Context, actor domain.Principal, id string) error
}

func (s *userAdminStub) ListUsers(ctx context.Context, actor domain.Principal, limit, offset int) ([]*domain.User, error) {
	return s.listFn(ctx, actor, limit, offset)
}

func (s *userAdminStub) DeleteUser(ctx context.Context, actor domain.Principal, id string) error {
	return s.deleteFn(ctx, actor, id)
}

type reconciliationStub struct {
	report *usecase.ReconciliationReport
	err    error
}

func (s *reconciliationStub) CheckConsistency(context.Context) (*usecase.ReconciliationReport, error) {
	return s.report, s.err
}

func (s *reconciliationStub) Repair(_ context.Context, actor domain.Principal) (*usecase.ReconciliationReport, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrInsufficientRole
	}
	return s.report, s.err
}

func TestUserHandler_List(t *testing.T) {
	h := NewUserHandler(&userAdminStub{
		listFn: func(context.Context, domain.Principal, int, int) ([]*domain.User, error) {
			return []*domain.User{{ID: "u1", Username: "alice", Role: domain.RoleMember}}, nil
		},
	})

	req := newRequest(t, http.MethodGet, "/users", nil, &admin, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []dto.UserResponse
	decodeBody(t, rec, &resp)
	if len(resp) != 1 || resp[0].Username != "alice" {
		t.Fatalf("unexpected users: %+v", resp)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"removed", nil, http.StatusOK},
		{"missing", domain.ErrUserNotFound, http.StatusNotFound},
		{"holding books", domain.ErrUserHasOpenLoans, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&userAdminStub{
				deleteFn: func(context.Context, domain.Principal, string) error { return tt.err },
			})

			req := newRequest(t, http.MethodDelete, "/users/u1", nil, &admin, map[string]string{"userId": "u1"})
			rec := httptest.NewRecorder()
			h.Delete(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	stub := &reconciliationStub{report: &usecase.ReconciliationReport{Consistent: true, TotalBooks: 2}}
	h := NewLedgerHandler(stub)

	rec := httptest.NewRecorder()
	h.CheckConsistency(rec, newRequest(t, http.MethodGet, "/ledger/consistency", nil, &admin, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	stub.report = &usecase.ReconciliationReport{
		Discrepancies: []usecase.AvailabilityDiscrepancy{{BookID: "b1", RecordedAvailable: true}},
	}
	rec = httptest.NewRecorder()
	h.CheckConsistency(rec, newRequest(t, http.MethodGet, "/ledger/consistency", nil, &admin, nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var resp dto.ReconciliationResponse
	decodeBody(t, rec, &resp)
	if len(resp.Discrepancies) != 1 || resp.Discrepancies[0].BookID != "b1" {
		t.Fatalf("unexpected report: %+v", resp)
	}

	stub.err = errors.New("boom")
	rec = httptest.NewRecorder()
	h.CheckConsistency(rec, newRequest(t, http.MethodGet, "/ledger/consistency", nil, &admin, nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestLedgerHandler_Reconcile(t *testing.T) {
	h := NewLedgerHandler(&reconciliationStub{report: &usecase.ReconciliationReport{Consistent: true, Repaired: 1}})

	rec := httptest.NewRecorder()
	h.Reconcile(rec, newRequest(t, http.MethodPost, "/ledger/reconcile", nil, &member, nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Reconcile(rec, newRequest(t, http.MethodPost, "/ledger/reconcile", nil, &admin, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.ReconciliationResponse
	decodeBody(t, rec, &resp)
	if resp.Repaired != 1 {
		t.Fatalf("expected repaired=1, got %+v", resp)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return nil }),
	})

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	h = NewHealthHandler(map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return nil }),
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["redis"] != "unhealthy" || body["store"] != "ok" {
		t.Fatalf("unexpected readiness body: %+v", body)
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
