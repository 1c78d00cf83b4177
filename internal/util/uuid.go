package util

import "github.com/google/uuid"

// NewUUID returns a random run identifier.
func NewUUID() string {
	return uuid.NewString()
}
