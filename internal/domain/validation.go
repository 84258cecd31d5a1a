package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation errors
var (
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidAuthor   = errors.New("invalid author")
	ErrInvalidISBN     = errors.New("invalid ISBN")
	ErrInvalidUsername = errors.New("invalid username")
	ErrPasswordTooWeak = errors.New("password does not meet requirements")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidIDFormat = errors.New("invalid ID format")
)

// Validation constants
const (
	MaxTitleLength    = 255
	MaxAuthorLength   = 255
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxIDLength       = 64
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	hasLetter     = regexp.MustCompile(`[A-Za-z]`)
	hasNumber     = regexp.MustCompile(`[0-9]`)
)

// ValidateTitle validates a book title
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)

	if title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTitle)
	}

	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTitle, MaxTitleLength)
	}

	return nil
}

// ValidateAuthor validates a book author
func ValidateAuthor(author string) error {
	author = strings.TrimSpace(author)

	if author == "" {
		return fmt.Errorf("%w: author cannot be empty", ErrInvalidAuthor)
	}

	if utf8.RuneCountInString(author) > MaxAuthorLength {
		return fmt.Errorf("%w: author exceeds %d characters", ErrInvalidAuthor, MaxAuthorLength)
	}

	return nil
}

// NormalizeISBN strips hyphens and spaces and upper-cases a trailing X.
func NormalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(isbn)
	return strings.ToUpper(isbn)
}

// ValidateISBN checks an ISBN-10 or ISBN-13 including its check digit.
// An empty ISBN is accepted; not every item carries one.
func ValidateISBN(isbn string) error {
	isbn = NormalizeISBN(isbn)

	switch len(isbn) {
	case 0:
		return nil
	case 10:
		sum := 0
		for i, c := range isbn {
			var d int
			switch {
			case c >= '0' && c <= '9':
				d = int(c - '0')
			case c == 'X' && i == 9:
				d = 10
			default:
				return fmt.Errorf("%w: unexpected character %q", ErrInvalidISBN, c)
			}
			sum += d * (10 - i)
		}
		if sum%11 != 0 {
			return fmt.Errorf("%w: bad check digit", ErrInvalidISBN)
		}
		return nil
	case 13:
		sum := 0
		for i, c := range isbn {
			if c < '0' || c > '9' {
				return fmt.Errorf("%w: unexpected character %q", ErrInvalidISBN, c)
			}
			d := int(c - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		if sum%10 != 0 {
			return fmt.Errorf("%w: bad check digit", ErrInvalidISBN)
		}
		return nil
	default:
		return fmt.Errorf("%w: must have 10 or 13 digits", ErrInvalidISBN)
	}
}

// ValidateUsername validates username format
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidUsername, MinUsernameLength, MaxUsernameLength)
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: only letters, digits, '.', '_' and '-' are allowed", ErrInvalidUsername)
	}

	return nil
}

// ValidatePassword validates password strength
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooWeak, MinPasswordLength)
	}

	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must not exceed %d characters", ErrPasswordTooWeak, MaxPasswordLength)
	}

	if !hasLetter.MatchString(password) || !hasNumber.MatchString(password) {
		return fmt.Errorf("%w: must contain letters and numbers", ErrPasswordTooWeak)
	}

	return nil
}

// ValidateID rejects empty or oversized identifiers before they reach a store
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > MaxIDLength {
		return ErrInvalidIDFormat
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
