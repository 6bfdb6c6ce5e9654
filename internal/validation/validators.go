package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordSpecial = regexp.MustCompile(`[@$!%*?&#]`)
	passwordCharset = regexp.MustCompile(`^[A-Za-z0-9@$!%*?&#]{8,}$`)
)

func init() {
	Validate = validator.New()

	// Register custom validators for the auth payloads
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("user_email", validateEmail); err != nil {
		panic(fmt.Sprintf("failed to register user_email validator: %v", err))
	}
	if err := Validate.RegisterValidation("user_password", validatePassword); err != nil {
		panic(fmt.Sprintf("failed to register user_password validator: %v", err))
	}
	if err := Validate.RegisterValidation("user_phone", validatePhone); err != nil {
		panic(fmt.Sprintf("failed to register user_phone validator: %v", err))
	}
}

func validateEmail(fl validator.FieldLevel) bool {
	return emailPattern.MatchString(fl.Field().String())
}

func validatePassword(fl validator.FieldLevel) bool {
	return ValidatePassword(fl.Field().String()) == nil
}

func validatePhone(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return phonePattern.MatchString(value)
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateName checks the trimmed display-name length bounds.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 || len(trimmed) > 100 {
		return fmt.Errorf("name must be between 2 and 100 characters")
	}
	return nil
}

// ValidateEmail checks the address against the accepted shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword enforces the password policy: at least 8 characters
// drawn from the allowed set, with a lowercase letter, an uppercase
// letter, a digit and a special character (@$!%*?&#) each present.
func ValidatePassword(password string) error {
	if !passwordCharset.MatchString(password) ||
		!passwordLower.MatchString(password) ||
		!passwordUpper.MatchString(password) ||
		!passwordDigit.MatchString(password) ||
		!passwordSpecial.MatchString(password) {
		return fmt.Errorf("password must be at least 8 characters and include uppercase, lowercase, number and special character")
	}
	return nil
}

// ValidatePhone checks an optional phone number. Empty is valid.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("invalid phone number format")
	}
	return nil
}
