package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ImportID identifies one bulk import run.
type ImportID string

// NewImportID generates a UUIDv7 import identifier.
// Time-ordered ids keep audit rows for consecutive imports adjacent in indexes.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewImportID() ImportID {
	return ImportID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates an identifier for rules declared without one.
func NewRuleID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseImportID validates a caller-supplied import id.
func ParseImportID(s string) (ImportID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid import id %q: %w", s, err)
	}
	return ImportID(s), nil
}
