package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/booklend/internal/adapter/http/dto"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// CatalogService defines the behavior needed by BookHandler.
type CatalogService interface {
	CreateBook(ctx context.Context, input usecase.CreateBookInput) (*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	ListBooks(ctx context.Context, limit, offset int) ([]*domain.Book, error)
	UpdateBook(ctx context.Context, input usecase.UpdateBookInput) (*domain.Book, error)
	DeleteBook(ctx context.Context, actor domain.Principal, id string) error
}

// BookHandler handles catalog HTTP requests.
type BookHandler struct {
	catalog CatalogService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(catalog CatalogService) *BookHandler {
	return &BookHandler{catalog: catalog}
}

// List lists books.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 0)
	offset := parseIntQuery(r, "offset", 0)

	books, err := h.catalog.ListBooks(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BooksFromDomain(books))
}

// Get retrieves a book by ID.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BookFromDomain(book))
}

// Create adds a book.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.CreateBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), req.ToUseCaseInput(actor))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BookFromDomain(book))
}

// Update edits a book and returns the updated version.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.UpdateBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.catalog.UpdateBook(r.Context(), req.ToUseCaseInput(actor, chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BookFromDomain(book))
}

// Delete removes a book. Loans that reference it stay in the ledger.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteBook(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Msg: "Book removed"})
}
