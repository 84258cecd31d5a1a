package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	t.Parallel()

	t.Run("valid title", func(t *testing.T) {
		if err := ValidateTitle("The Great Gatsby"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty title rejected", func(t *testing.T) {
		err := ValidateTitle("   ")
		if !errors.Is(err, ErrInvalidTitle) {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	t.Run("title too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxTitleLength+1)
		err := ValidateTitle(tooLong)
		if !errors.Is(err, ErrInvalidTitle) {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})
}

func TestValidateAuthor(t *testing.T) {
	t.Parallel()

	if err := ValidateAuthor("Harper Lee"); err != nil {
		t.Fatalf("expected valid author, got %v", err)
	}

	if err := ValidateAuthor(""); !errors.Is(err, ErrInvalidAuthor) {
		t.Fatalf("expected ErrInvalidAuthor, got %v", err)
	}
}

func TestValidateISBN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		isbn    string
		wantErr bool
	}{
		{name: "empty allowed", isbn: ""},
		{name: "isbn-13", isbn: "9780743273565"},
		{name: "isbn-13 with hyphens", isbn: "978-0-06-112008-4"},
		{name: "isbn-10", isbn: "0451524934"},
		{name: "isbn-10 with X", isbn: "080442957X"},
		{name: "isbn-13 bad check digit", isbn: "9780743273566", wantErr: true},
		{name: "isbn-10 bad check digit", isbn: "0451524935", wantErr: true},
		{name: "wrong length", isbn: "12345", wantErr: true},
		{name: "letters", isbn: "97807432735AB", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateISBN(tt.isbn)
			if tt.wantErr && !errors.Is(err, ErrInvalidISBN) {
				t.Fatalf("expected ErrInvalidISBN, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	if err := ValidateUsername("alice_01"); err != nil {
		t.Fatalf("expected valid username, got %v", err)
	}

	if err := ValidateUsername("al"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername for short name, got %v", err)
	}

	if err := ValidateUsername("alice smith"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername for space, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if err := ValidatePassword("password123"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}

	if err := ValidatePassword("short1"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak for short password, got %v", err)
	}

	if err := ValidatePassword("onlyletters"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak without digits, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, _ := ValidatePagination(0, -5)
	if limit != 50 || offset != 0 {
		t.Fatalf("expected defaults 50/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Fatalf("expected limit capped at 1000, got %d", limit)
	}
}
