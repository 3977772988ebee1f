package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrDuplicateRegistration = errors.New("you are already registered for this event")
	ErrInvalidEmail          = errors.New("invalid email format")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailTaken            = errors.New("email already exists")
	ErrStoreUnavailable      = errors.New("store unavailable")

	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownSubject = errors.New("user not found")
	ErrForbidden      = errors.New("admin access required")
)

// ValidationError is returned when input is missing or malformed. Missing
// lists the absent required fields, in request order.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

func invalid(format string, a ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, a...)}
}

// field is a named input value checked by requireFields.
type field struct {
	name  string
	value string
}

func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an address. Every lookup and every
// write goes through it so comparisons are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// storeErr wraps an unexpected persistence failure.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
