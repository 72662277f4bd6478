package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_Generate(t *testing.T) {
	gen, err := NewTokenGenerator()
	require.NoError(t, err)

	token, err := gen.Generate("session-1", "export")
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.NoError(t, gen.Validate(token))
}

func TestTokenGenerator_GenerateIsNonDeterministic(t *testing.T) {
	gen, err := NewTokenGenerator()
	require.NoError(t, err)

	first, err := gen.Generate("session-1", "export")
	require.NoError(t, err)
	second, err := gen.Generate("session-1", "export")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenGenerator_Validate(t *testing.T) {
	gen, err := NewTokenGenerator()
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		expectError bool
	}{
		{name: "valid hex token", token: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", expectError: false},
		{name: "empty", token: "", expectError: true},
		{name: "too short", token: "abcdef", expectError: true},
		{name: "uppercase hex", token: "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", expectError: true},
		{name: "non-hex characters", token: "zzzz456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gen.Validate(tt.token)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
