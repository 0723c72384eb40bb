package validator

import (
	"testing"

	playground "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0812345678", "0812345678", "National format"},
		{"081 234 5678", "0812345678", "With spaces"},
		{"081-234-5678", "0812345678", "With dashes"},
		{"081.234.5678", "0812345678", "With dots"},
		{"(081) 234 5678", "0812345678", "With parentheses"},
		{"+66812345678", "+66812345678", "E.164"},
		{"+66 81-234-5678", "+66812345678", "E.164 with separators"},
		{"0066812345678", "+66812345678", "International 00 prefix"},
		{"  081-234-5678  ", "0812345678", "Surrounding spaces"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"     ", ErrEmptyPhone, "Only spaces"},
		{"1234567", ErrInvalidLength, "Too short"},
		{"+1234567890123456", ErrInvalidLength, "Too long"},
		{"08123a5678", ErrInvalidFormat, "Contains letters"},
		{"081 234 567!", ErrInvalidFormat, "Contains special characters"},
		{"++66812345678", ErrInvalidFormat, "Double plus"},
		{"0812+345678", ErrInvalidFormat, "Plus inside number"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator()

	assert.Equal(t, "0812345678", validator.Sanitize("081 - 234 - 5678"))
	assert.Equal(t, "+66812345678", validator.Sanitize("00 66 81 234 5678"))
	assert.Equal(t, "+66812345678", validator.Sanitize("+66 (81) 234.5678"))
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValid("+66812345678"))
	assert.True(t, validator.IsValid("020 7946 0958"))
	assert.False(t, validator.IsValid("invalid"))
	assert.False(t, validator.IsValid("123"))
}

func TestRegisterPhoneRule(t *testing.T) {
	engine := playground.New()
	require.NoError(t, RegisterPhoneRule(engine))

	type identity struct {
		Phone string `validate:"omitempty,phone"`
	}

	assert.NoError(t, engine.Struct(identity{Phone: "+66 81 234 5678"}))
	assert.NoError(t, engine.Struct(identity{}))

	err := engine.Struct(identity{Phone: "not-a-phone"})
	require.Error(t, err)
	var verrs playground.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "phone", verrs[0].Tag())
}

func TestConcurrentValidation(t *testing.T) {
	validator := NewPhoneValidator()

	done := make(chan bool)
	errors := make(chan error, 100)

	phones := []string{
		"0812345678",
		"+66812345678",
		"081-234-5678",
	}

	for i := 0; i < 100; i++ {
		go func(phone string) {
			_, err := validator.Validate(phone)
			if err != nil {
				errors <- err
			}
			done <- true
		}(phones[i%len(phones)])
	}

	for i := 0; i < 100; i++ {
		<-done
	}

	close(errors)
	assert.Empty(t, errors)
}

func BenchmarkValidate(b *testing.B) {
	validator := NewPhoneValidator()
	phone := "+66 81-234-5678"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = validator.Validate(phone)
	}
}
