package contacts

import (
	"errors"
	"regexp"
)

var (
	errEmptyName    = errors.New("contact name is required")
	errEmptyPhone   = errors.New("contact phone is required")
	errInvalidPhone = errors.New("invalid phone number")
)

// ValidationError marks synchronously rejected input. No state is mutated
// when one is returned.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Loose E.164-compatible shape: optional leading +, then 7-20 characters of
// digits, spaces, dashes, parentheses, or periods.
var phoneShape = regexp.MustCompile(`^\+?[0-9 .()\-]{7,20}$`)

var digitOnly = regexp.MustCompile(`[^0-9]`)

// ValidPhone checks the number's shape and digit count, not carrier
// reachability.
func ValidPhone(phone string) bool {
	if !phoneShape.MatchString(phone) {
		return false
	}
	digits := digitOnly.ReplaceAllString(phone, "")
	return len(digits) >= 7 && len(digits) <= 15
}
