// backend/src/security/validation/validation.go
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const MaxInstitutionNameLength = 255

var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText removes all HTML tags and attributes from an input string
// before it is saved to the database.
func SanitizeText(s string) string {
	return strictHTMLPolicy.Sanitize(s)
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// SanitizeInstitutionName cleans a user-supplied institution name and checks
// it fits the stored column. An empty result is allowed; the model falls back
// to a default name.
func SanitizeInstitutionName(s string) (string, error) {
	cleaned := strings.TrimSpace(StripUnprintable(SanitizeText(s)))
	if utf8.RuneCountInString(cleaned) > MaxInstitutionNameLength {
		return "", fmt.Errorf("%w: institution name exceeds maximum length of %d characters", ErrValidationFailed, MaxInstitutionNameLength)
	}
	return cleaned, nil
}

// ValidateMonth checks if a string is a calendar month in "YYYY-MM" format.
func ValidateMonth(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fmt.Errorf("%w: month cannot be empty", ErrValidationFailed)
	}
	t, err := time.Parse("2006-01", trimmed)
	if err != nil {
		return fmt.Errorf("%w: month ('%s') is not in the expected format (YYYY-MM)", ErrValidationFailed, s)
	}
	if t.Format("2006-01") != trimmed {
		return fmt.Errorf("%w: month ('%s') is not a valid calendar month", ErrValidationFailed, s)
	}
	return nil
}
