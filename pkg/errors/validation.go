package errors

import (
	"strings"
	"unicode"
)

// maxIdentifierLen bounds producer-supplied scope identifiers.
const maxIdentifierLen = 256

// ValidateIdentifier validates a scope identifier supplied by a producer.
// Identifiers are short names ("root", "subroot", "t12") used to refer to
// nodes while a subtree is being built.
//
// The rules are:
//   - No control characters
//   - No surrounding whitespace
//   - Maximum length of 256 characters
//
// An empty identifier is valid; callers treat it as "not given".
func ValidateIdentifier(id string) error {
	if len(id) > maxIdentifierLen {
		return New(ErrCodeInvalidCommand, "identifier too long (max %d characters)", maxIdentifierLen)
	}
	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidCommand, "identifier %q has surrounding whitespace", id)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCommand, "identifier contains invalid control characters")
		}
	}
	return nil
}

// ValidateArchiveKey validates a tree archive key for safety.
// Keys end up in file names and redis keys, so path components and
// whitespace are rejected.
func ValidateArchiveKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "archive key cannot be empty")
	}
	if len(key) > maxIdentifierLen {
		return New(ErrCodeInvalidKey, "archive key too long (max %d characters)", maxIdentifierLen)
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(key, pattern) {
			return New(ErrCodeInvalidKey, "archive key contains invalid characters: %q", pattern)
		}
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidKey, "archive key contains whitespace or control characters")
		}
	}
	return nil
}
