package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// variantIDRegex matches variant ids as they appear in settings blocks and
// artifact file names.
var variantIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateVariantID validates a variant identifier.
//
// Ids become keys in the persisted settings block and are substituted into
// build commands, so the rules are conservative:
//   - No empty ids
//   - Maximum length of 128 characters
//   - Letters, digits, dot, dash and underscore only; must start alphanumeric
func ValidateVariantID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidVariant, "variant id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidVariant, "variant id too long (max 128 characters)")
	}

	if !variantIDRegex.MatchString(id) {
		return New(ErrCodeInvalidVariant, "invalid variant id: %q", id)
	}

	return nil
}

// ValidatePath validates an artifact or data file path from the project file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
