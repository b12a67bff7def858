package uid

import (
	"strings"

	"github.com/google/uuid"
)

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// Short generates a compact identifier for log correlation and
// locally created entities.
func Short() string {
	return strings.SplitN(uuid.New().String(), "-", 2)[0]
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
