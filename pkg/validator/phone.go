package validator

import (
	"errors"
	"regexp"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidLength indicates phone number length is outside 8 to 15 digits
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and an optional leading +")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

const (
	minDigits = 8
	maxDigits = 15
)

// phoneRegex matches an optional + followed by digits
var phoneRegex = regexp.MustCompile(`^\+?\d+$`)

// separators stripped before validation
var separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// PhoneValidator handles phone number validation for customer contact details
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates an international or national phone number
// Accepts format: +66812345678 or 081 234 5678 or (081) 234-5678
// Returns sanitized phone number and error if invalid
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	digits := strings.TrimPrefix(sanitized, "+")
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize removes common separators; "00" international prefix becomes "+"
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = separators.Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}
	return phone
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}

// RegisterPhoneRule adds the "phone" tag to a validator engine
func RegisterPhoneRule(engine *playground.Validate) error {
	pv := NewPhoneValidator()
	return engine.RegisterValidation("phone", func(fl playground.FieldLevel) bool {
		return pv.IsValid(fl.Field().String())
	})
}
