package domain

import "time"

// Event types
const (
	EventTypeLoanBorrowed = "loan.borrowed"
	EventTypeLoanReturned = "loan.returned"
	EventTypeBookDeleted  = "book.deleted"
)

// Aggregate types
const (
	AggregateTypeLoan = "loan"
	AggregateTypeBook = "book"
	AggregateTypeUser = "user"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// LoanBorrowedPayload builds the payload of a loan.borrowed event.
func LoanBorrowedPayload(loan *Loan) map[string]any {
	return map[string]any{
		"loan_id":     loan.ID,
		"user_id":     loan.UserID,
		"book_id":     loan.BookID,
		"borrowed_at": loan.BorrowedAt.Format(time.RFC3339Nano),
	}
}

// LoanReturnedPayload builds the payload of a loan.returned event.
func LoanReturnedPayload(loan *Loan, bookDeleted bool) map[string]any {
	p := map[string]any{
		"loan_id":      loan.ID,
		"user_id":      loan.UserID,
		"book_id":      loan.BookID,
		"borrowed_at":  loan.BorrowedAt.Format(time.RFC3339Nano),
		"book_deleted": bookDeleted,
	}
	if loan.ReturnedAt != nil {
		p["returned_at"] = loan.ReturnedAt.Format(time.RFC3339Nano)
	}
	return p
}
