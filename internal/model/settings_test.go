package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcd", "****"},
		{"secret-token-1234", "****1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskSecret(tt.in), tt.in)
	}
}

func TestRedactedLeavesOriginal(t *testing.T) {
	s := DefaultSettings()
	s.ChatwootToken = "secret-token-1234"

	r := s.Redacted()
	assert.Equal(t, "****1234", r.ChatwootToken)
	assert.Equal(t, "secret-token-1234", s.ChatwootToken)
}
