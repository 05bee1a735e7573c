package session

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a time-ordered UUID (version 7), so IDs sort by creation.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ShortID returns the first group of an ID, enough to pass to
// `history --session`.
func ShortID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok {
		return head
	}
	return id
}
