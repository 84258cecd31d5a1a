package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/adapter/http/handler"
	apimiddleware "github.com/iho/booklend/internal/adapter/http/middleware"
	"github.com/iho/booklend/internal/adapter/repository/memory"
	"github.com/iho/booklend/internal/infrastructure/auth"
	"github.com/iho/booklend/internal/infrastructure/metrics"
	"github.com/iho/booklend/internal/usecase"
	"github.com/iho/booklend/internal/usecase/mocks"
)

type testApp struct {
	router http.Handler
	store  *mocks.StubIdempotencyStore
}

func newTestApp(t *testing.T, opts ...func(*RouterConfig)) *testApp {
	t.Helper()

	s := memory.NewStore()
	books := memory.NewBookRepository(s)
	loans := memory.NewLoanRepository(s)
	users := memory.NewUserRepository(s)
	outbox := memory.NewOutboxRepository(s)
	audit := memory.NewAuditRepository(s)
	ids := mocks.NewSequenceIDGenerator("id")
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	userUC := usecase.NewUserUseCase(s, users, loans, audit, ids, m)
	if _, err := userUC.EnsureAdmin(context.Background(), "root", "RootPass1"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	jwtManager := auth.NewJWTManager("router-test-secret", time.Hour)
	idem := mocks.NewStubIdempotencyStore()

	cfg := RouterConfig{
		AuthHandler:    handler.NewAuthHandler(userUC, jwtManager, m),
		BookHandler:    handler.NewBookHandler(usecase.NewCatalogUseCase(s, books, loans, outbox, audit, ids, m, nil, zerolog.Nop())),
		LendingHandler: handler.NewLendingHandler(usecase.NewLendingUseCase(s, books, loans, users, outbox, audit, ids, m)),
		UserHandler:    handler.NewUserHandler(userUC),
		LedgerHandler:  handler.NewLedgerHandler(usecase.NewReconciliationUseCase(s, books, loans, audit, ids, m, zerolog.Nop())),
		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"store": handler.PingFunc(func(context.Context) error { return nil }),
		}),
		Authenticator:    apimiddleware.NewAuthenticator(jwtManager),
		IdempotencyStore: idem,
		Metrics:          m,
		Logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testApp{router: NewRouter(cfg), store: idem}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, username, password string) dto.LoginResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.CredentialsRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp dto.LoginResponse
	decode(t, rec, &resp)
	return resp
}

func (a *testApp) register(t *testing.T, username string) dto.LoginResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.CredentialsRequest{Username: username, Password: "StrongPass1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, rec.Code, rec.Body.String())
	}
	return a.login(t, username, "StrongPass1")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := app.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to return 200, got %d", path, rec.Code)
		}
	}
}

func TestNewRouter_LendingFlow(t *testing.T) {
	app := newTestApp(t)
	root := app.login(t, "root", "RootPass1")
	alice := app.register(t, "alice")
	bob := app.register(t, "bob")

	rec := app.do(t, http.MethodPost, "/api/v1/books/", root.Token, dto.CreateBookRequest{Title: "Dune", Author: "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var book dto.BookResponse
	decode(t, rec, &book)

	rec = app.do(t, http.MethodPost, "/api/v1/users/borrow", alice.Token, dto.LoanRequest{UserID: alice.User.ID, BookID: book.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("borrow: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(t, http.MethodPost, "/api/v1/users/borrow", bob.Token, dto.LoanRequest{UserID: bob.User.ID, BookID: book.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second borrow: expected 400, got %d", rec.Code)
	}
	var errResp dto.ErrorResponse
	decode(t, rec, &errResp)
	if errResp.Msg != "Book is not available" {
		t.Fatalf("unexpected message %q", errResp.Msg)
	}

	rec = app.do(t, http.MethodGet, "/api/v1/books/"+book.ID, "", nil)
	decode(t, rec, &book)
	if book.Available {
		t.Fatal("expected book to be unavailable while on loan")
	}

	rec = app.do(t, http.MethodGet, "/api/v1/users/"+alice.User.ID+"/books/"+book.ID+"/borrowed", alice.Token, nil)
	var borrowed dto.BorrowedResponse
	decode(t, rec, &borrowed)
	if !borrowed.Borrowed {
		t.Fatal("expected alice to hold the book")
	}

	// Bob cannot return alice's book.
	rec = app.do(t, http.MethodPost, "/api/v1/users/return", bob.Token, dto.LoanRequest{UserID: alice.User.ID, BookID: book.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign return: expected 403, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/users/return", alice.Token, dto.LoanRequest{UserID: alice.User.ID, BookID: book.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("return: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(t, http.MethodPost, "/api/v1/users/return", alice.Token, dto.LoanRequest{UserID: alice.User.ID, BookID: book.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("double return: expected 400, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodGet, "/api/v1/users/"+alice.User.ID+"/history", alice.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}
	var history []dto.HistoryEntryResponse
	decode(t, rec, &history)
	if len(history) != 1 || history[0].ReturnedAt == nil || history[0].Book == nil || history[0].Book.Title != "Dune" {
		t.Fatalf("unexpected history: %+v", history)
	}

	rec = app.do(t, http.MethodGet, "/api/v1/users/"+alice.User.ID+"/history", bob.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign history: expected 403, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodGet, "/api/v1/ledger/consistency", root.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("consistency: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_AccessControl(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"books are public", http.MethodGet, "/api/v1/books/", "", http.StatusOK},
		{"me needs a token", http.MethodGet, "/api/v1/users/me", "", http.StatusUnauthorized},
		{"me with token", http.MethodGet, "/api/v1/users/me", alice.Token, http.StatusOK},
		{"member cannot add books", http.MethodPost, "/api/v1/books/", alice.Token, http.StatusForbidden},
		{"member cannot list users", http.MethodGet, "/api/v1/users/", alice.Token, http.StatusForbidden},
		{"member cannot reconcile", http.MethodPost, "/api/v1/ledger/reconcile", alice.Token, http.StatusForbidden},
		{"bad token", http.MethodGet, "/api/v1/users/me", "garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNewRouter_TrustedMode(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.Authenticator = apimiddleware.NewTrustedAuthenticator()
	})

	rec := app.do(t, http.MethodPost, "/api/v1/books/", "", dto.CreateBookRequest{Title: "Dune", Author: "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected trusted caller to create books, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_IdempotentBorrowReplays(t *testing.T) {
	app := newTestApp(t)
	root := app.login(t, "root", "RootPass1")
	alice := app.register(t, "alice")

	rec := app.do(t, http.MethodPost, "/api/v1/books/", root.Token, dto.CreateBookRequest{Title: "Emma", Author: "Jane Austen"})
	var book dto.BookResponse
	decode(t, rec, &book)

	body := dto.LoanRequest{UserID: alice.User.ID, BookID: book.ID}
	first := app.do(t, http.MethodPost, "/api/v1/users/borrow", alice.Token, body, apimiddleware.IdempotencyKeyHeader, "borrow-1")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}

	second := app.do(t, http.MethodPost, "/api/v1/users/borrow", alice.Token, body, apimiddleware.IdempotencyKeyHeader, "borrow-1")
	if second.Code != http.StatusOK || second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatalf("expected replayed 200, got %d replay=%q", second.Code, second.Header().Get("X-Idempotency-Replay"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical body, got %s vs %s", second.Body.String(), first.Body.String())
	}
}

func TestNewRouter_IdempotentCreateReplaysStatus(t *testing.T) {
	app := newTestApp(t)
	root := app.login(t, "root", "RootPass1")

	body := dto.CreateBookRequest{Title: "Persuasion", Author: "Jane Austen"}
	first := app.do(t, http.MethodPost, "/api/v1/books/", root.Token, body, apimiddleware.IdempotencyKeyHeader, "create-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	second := app.do(t, http.MethodPost, "/api/v1/books/", root.Token, body, apimiddleware.IdempotencyKeyHeader, "create-1")
	if second.Code != http.StatusCreated || second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatalf("expected replayed 201, got %d replay=%q", second.Code, second.Header().Get("X-Idempotency-Replay"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical body, got %s vs %s", second.Body.String(), first.Body.String())
	}
}

func TestNewRouter_RateLimiterBlocksExcessLogins(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(0.001, 1, nil)
	})

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"username":"root","password":"RootPass1"}`))
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := login(); code != http.StatusOK {
		t.Fatalf("expected first login to succeed, got %d", code)
	}
	if code := login(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second login to be throttled, got %d", code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := newTestApp(t).router

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/books/",
		"GET /api/v1/books/{id}",
		"POST /api/v1/books/",
		"PUT /api/v1/books/{id}",
		"DELETE /api/v1/books/{id}",
		"GET /api/v1/users/me",
		"POST /api/v1/users/borrow",
		"POST /api/v1/users/return",
		"GET /api/v1/users/{userId}/history",
		"GET /api/v1/users/{userId}/loans",
		"GET /api/v1/users/{userId}/books/{bookId}/borrowed",
		"GET /api/v1/users/",
		"DELETE /api/v1/users/{userId}",
		"GET /api/v1/ledger/consistency",
		"POST /api/v1/ledger/reconcile",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}
