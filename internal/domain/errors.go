package domain

import "errors"

var (
	// Catalog errors
	ErrBookNotFound = errors.New("book not found")

	// Lending errors
	ErrBookUnavailable = errors.New("book is not available")
	ErrNoOpenLoan      = errors.New("no open loan for this user and book")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrForbidden       = errors.New("operation not permitted for this user")

	// Account errors
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrUserHasOpenLoans = errors.New("user has open loans")

	// Storage errors
	ErrStoreUnavailable = errors.New("store unavailable")
)
