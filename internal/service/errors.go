package service

import (
	"errors"
	"fmt"

	"github.com/authgate/authgate-go/internal/validator"
)

// Credential failures. The messages are returned to callers verbatim.
var (
	ErrCannotFindUser  = errors.New("Cannot find user") //nolint:staticcheck // public message
	ErrInvalidPassword = errors.New("Invalid password") //nolint:staticcheck // public message
)

// ValidationError carries every violation found in the request.
type ValidationError struct {
	Violations validator.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d violation(s)", len(e.Violations))
}
