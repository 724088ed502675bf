package utils

import (
	"fmt"
	"regexp"
)

var (
	emailRegex         = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	referenceCodeRegex = regexp.MustCompile(`^(IT|VH)-[0-9a-f]{8}$`)
	controlCharRegex   = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateReferenceCode validates a request reference code such as IT-5f3a9c2e
func ValidateReferenceCode(code string) error {
	if !referenceCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid reference code format: %s", code)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text
func SanitizeString(s string) string {
	return controlCharRegex.ReplaceAllString(s, "")
}
