package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session is the authenticated identity a request acts as. It is built from
// verified token claims and passed explicitly; nothing reads it from globals.
type Session struct {
	UserID      string
	DisplayName string
	Email       string
}

func ValidateUserID(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Errorf("invalid user id: %s", raw)
	}
	return nil
}
