package contacts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Contact struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

type UpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// SortKey selects the ordering of a listed or streamed contact set.
type SortKey string

const (
	// SortByName orders by name ascending, byte-wise on the raw string.
	// No locale-aware collation is applied.
	SortByName SortKey = "name"
	// SortByDate orders by creation time, newest first.
	SortByDate SortKey = "date"
)

func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortByName, "":
		return SortByName, nil
	case SortByDate:
		return SortByDate, nil
	}
	return "", fmt.Errorf("unsupported sort key: %s", raw)
}

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrDuplicatePhone  = errors.New("a contact with this phone number already exists")
)

// ValidationError reports a missing required field, caught before any store
// call is made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}
