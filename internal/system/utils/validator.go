package utils

import (
	"fmt"
	"strings"
)

// ValidateRequired validates a field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength validates a field does not exceed max characters
func ValidateMaxLength(fieldName, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s too long (max %d chars)", fieldName, max)
	}
	return nil
}

// ValidateID validates an identifier path or body parameter
func ValidateID(fieldName, id string) error {
	if err := ValidateRequired(fieldName, id); err != nil {
		return err
	}
	return ValidateMaxLength(fieldName, id, 64)
}

// ValidatePagination validates skip and take
func ValidatePagination(skip, take, maxTake int) error {
	if take < 1 || take > maxTake {
		return fmt.Errorf("take must be between 1 and %d", maxTake)
	}
	if skip < 0 {
		return fmt.Errorf("skip must be non-negative")
	}
	return nil
}
