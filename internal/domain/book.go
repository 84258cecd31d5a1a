package domain

import "time"

// Book is a catalog item. Available mirrors "no open loan references this
// book" and is only flipped by the lending flow.
type Book struct {
	ID        string
	Title     string
	Author    string
	ISBN      string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookSummary is the part of a book shown next to a loan in history.
type BookSummary struct {
	Title   string
	Author  string
	Removed bool
}

// RemovedBookSummary stands in for a book that was deleted from the catalog
// while loans still reference it.
var RemovedBookSummary = BookSummary{
	Title:   "(removed)",
	Author:  "(removed)",
	Removed: true,
}

// Summary returns the history view of the book.
func (b *Book) Summary() BookSummary {
	return BookSummary{Title: b.Title, Author: b.Author}
}
