package lending

import (
	"strings"

	"github.com/google/uuid"
)

// BookEntry is a catalog row representing one or more physical copies tracked as a single
// available/unavailable unit.
//
// Available is the only lifecycle attribute. It is false if and only if a loan in status
// BORROWED or OVERDUE references this entry, and it is only written through the inventory guard.
type BookEntry struct {
	ID        uuid.UUID
	Title     string
	Author    string
	ISBN      string
	Genre     string
	Quantity  int
	Available bool
	Version   int64
}

// BuildBookEntry creates a new, available BookEntry.
func BuildBookEntry(id uuid.UUID, title, author, isbn, genre string, quantity int) BookEntry {
	return BookEntry{
		ID:        id,
		Title:     title,
		Author:    author,
		ISBN:      isbn,
		Genre:     genre,
		Quantity:  quantity,
		Available: true,
	}
}

// Matches reports whether the keyword occurs in the title or author, ignoring case.
func (b BookEntry) Matches(keyword string) bool {
	k := strings.ToLower(keyword)

	return strings.Contains(strings.ToLower(b.Title), k) || strings.Contains(strings.ToLower(b.Author), k)
}
