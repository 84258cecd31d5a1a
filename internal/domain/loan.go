package domain

import "time"

// Loan is one borrow transaction in the ledger. It is open while ReturnedAt
// is nil.
type Loan struct {
	ID         string
	UserID     string
	BookID     string
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// IsOpen reports whether the book is still checked out under this loan.
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// Close stamps the return time. The stamp never precedes BorrowedAt, so a
// clock step backwards cannot produce a loan returned before it was borrowed.
func (l *Loan) Close(now time.Time) time.Time {
	if now.Before(l.BorrowedAt) {
		now = l.BorrowedAt
	}
	l.ReturnedAt = &now
	return now
}

// LoanRecord is a loan enriched with the book details at query time.
type LoanRecord struct {
	Loan *Loan
	Book BookSummary
}
