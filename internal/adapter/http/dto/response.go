package dto

import (
	"time"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Msg string `json:"msg"`
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// BookResponse represents a book in API responses.
type BookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookFromDomain converts domain book to response.
func BookFromDomain(b *domain.Book) *BookResponse {
	return &BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		Available: b.Available,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// BooksFromDomain converts domain books to responses.
func BooksFromDomain(books []*domain.Book) []*BookResponse {
	result := make([]*BookResponse, len(books))
	for i, b := range books {
		result[i] = BookFromDomain(b)
	}
	return result
}

// UserResponse represents a user in API responses. The password hash is
// never part of it.
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	resp := &UserResponse{ID: u.ID, Username: u.Username, Role: u.Role}
	if !u.CreatedAt.IsZero() {
		createdAt := u.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

// UsersFromDomain converts domain users to responses.
func UsersFromDomain(users []*domain.User) []*UserResponse {
	result := make([]*UserResponse, len(users))
	for i, u := range users {
		result[i] = UserFromDomain(u)
	}
	return result
}

// PrincipalResponse describes the caller.
type PrincipalResponse struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	BookID     string     `json:"bookId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	ReturnedAt *time.Time `json:"returnedAt"`
}

// LoanFromDomain converts domain loan to response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	return &LoanResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		BookID:     l.BookID,
		BorrowedAt: l.BorrowedAt,
		ReturnedAt: l.ReturnedAt,
	}
}

// LoansFromDomain converts domain loans to responses.
func LoansFromDomain(loans []*domain.Loan) []*LoanResponse {
	result := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		result[i] = LoanFromDomain(l)
	}
	return result
}

// LoanOutcomeResponse is returned by borrow and return.
type LoanOutcomeResponse struct {
	Msg  string        `json:"msg"`
	Loan *LoanResponse `json:"loan"`
}

// HistoryBook is the book part of a history row.
type HistoryBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// HistoryEntryResponse is one row of a user's borrowing history. Book is
// null when the book has since been removed from the catalog.
type HistoryEntryResponse struct {
	LoanID     string       `json:"loanId"`
	BookID     string       `json:"bookId"`
	Book       *HistoryBook `json:"book"`
	BorrowedAt time.Time    `json:"borrowedAt"`
	ReturnedAt *time.Time   `json:"returnedAt"`
}

// HistoryFromDomain converts loan records to history rows.
func HistoryFromDomain(records []*domain.LoanRecord) []*HistoryEntryResponse {
	result := make([]*HistoryEntryResponse, len(records))
	for i, rec := range records {
		entry := &HistoryEntryResponse{
			LoanID:     rec.Loan.ID,
			BookID:     rec.Loan.BookID,
			BorrowedAt: rec.Loan.BorrowedAt,
			ReturnedAt: rec.Loan.ReturnedAt,
		}
		if !rec.Book.Removed {
			entry.Book = &HistoryBook{Title: rec.Book.Title, Author: rec.Book.Author}
		}
		result[i] = entry
	}
	return result
}

// BorrowedResponse answers whether a user holds a book.
type BorrowedResponse struct {
	Borrowed bool `json:"borrowed"`
}

// DiscrepancyResponse is a book whose flag disagrees with the loan ledger.
type DiscrepancyResponse struct {
	BookID            string `json:"bookId"`
	RecordedAvailable bool   `json:"recordedAvailable"`
	DerivedAvailable  bool   `json:"derivedAvailable"`
}

// ReconciliationResponse represents a consistency report.
type ReconciliationResponse struct {
	Consistent    bool                   `json:"consistent"`
	TotalBooks    int                    `json:"totalBooks"`
	OpenLoans     int                    `json:"openLoans"`
	Repaired      int                    `json:"repaired"`
	Discrepancies []*DiscrepancyResponse `json:"discrepancies"`
	CheckedAt     time.Time              `json:"checkedAt"`
}

// ReconciliationFromUseCase converts a reconciliation report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		Consistent:    r.Consistent,
		TotalBooks:    r.TotalBooks,
		OpenLoans:     r.OpenLoans,
		Repaired:      r.Repaired,
		Discrepancies: make([]*DiscrepancyResponse, len(r.Discrepancies)),
		CheckedAt:     r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = &DiscrepancyResponse{
			BookID:            d.BookID,
			RecordedAvailable: d.RecordedAvailable,
			DerivedAvailable:  d.DerivedAvailable,
		}
	}
	return resp
}
