package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidatePromptText validates a stored prompt body.
func ValidatePromptText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("prompt_text cannot be empty")
	}
	if len(text) > 100000 { // ~100KB limit
		return errors.New("prompt_text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("prompt_text must be valid UTF-8")
	}
	return nil
}

// ValidateName validates a prompt or profile name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > 256 {
		return errors.New("name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("name must be valid UTF-8")
	}
	return nil
}
