package database

import (
	"fmt"

	"github.com/google/uuid"
)

func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}

// isUUID reports whether s can be used against a UUID column
func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}
