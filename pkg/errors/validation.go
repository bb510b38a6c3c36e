package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateIdentifier validates a schema, table or column name before it is
// handed to a schema source. Names are quoted by the sources, so the rules
// only reject what can never be a real identifier:
//   - No empty names
//   - No control characters or null bytes
//   - Maximum length of 128 characters
func ValidateIdentifier(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidIdentifier, "%s name cannot be empty", kind)
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidIdentifier, "%s name too long (max 128 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidIdentifier, "%s name contains invalid control characters", kind)
		}
	}

	return nil
}

// connectionIDRegex matches connection ids as they appear in config files.
var connectionIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateConnectionID validates a connection id.
func ValidateConnectionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "connection id cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "connection id too long (max 64 characters)")
	}
	if !connectionIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid connection id: %q", id)
	}
	return nil
}

// ValidateConfigID validates a saved diagram id. Ids become storage keys and,
// for the file backend, file names, so path separators and traversal
// sequences are rejected.
func ValidateConfigID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "diagram id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "diagram id too long (max 128 characters)")
	}

	for _, r := range id {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "diagram id contains invalid characters")
		}
	}

	dangerousPatterns := []string{
		"..", // Parent directory
		"/",  // Path separator
		"\\", // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "diagram id contains invalid characters: %q", pattern)
		}
	}

	return nil
}
