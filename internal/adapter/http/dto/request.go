package dto

import (
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateBookRequest represents a request to add a book.
type CreateBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateBookRequest) ToUseCaseInput(actor domain.Principal) usecase.CreateBookInput {
	return usecase.CreateBookInput{
		Actor:  actor,
		Title:  r.Title,
		Author: r.Author,
		ISBN:   r.ISBN,
	}
}

// UpdateBookRequest represents a partial book edit. Omitted fields are kept.
type UpdateBookRequest struct {
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
	ISBN   *string `json:"isbn,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateBookRequest) ToUseCaseInput(actor domain.Principal, id string) usecase.UpdateBookInput {
	return usecase.UpdateBookInput{
		Actor:  actor,
		ID:     id,
		Title:  r.Title,
		Author: r.Author,
		ISBN:   r.ISBN,
	}
}

// LoanRequest is the body of borrow and return.
type LoanRequest struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
}

// ToBorrowInput converts to use case input.
func (r *LoanRequest) ToBorrowInput(actor domain.Principal) usecase.BorrowInput {
	return usecase.BorrowInput{Actor: actor, UserID: r.UserID, BookID: r.BookID}
}

// ToReturnInput converts to use case input.
func (r *LoanRequest) ToReturnInput(actor domain.Principal) usecase.ReturnInput {
	return usecase.ReturnInput{Actor: actor, UserID: r.UserID, BookID: r.BookID}
}
