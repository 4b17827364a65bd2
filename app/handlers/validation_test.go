package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelier/doorkeeper/app/dto"
)

/*
Validation cases:
- valid DTOs pass; short passwords are acceptable on purpose
- missing and malformed fields produce named messages
- sanitizers trim whitespace and strip control characters
- email case is preserved
*/

func TestValidateSignUpRequest(t *testing.T) {
	req := dto.SignUpRequest{Email: "a@x.com", Password: "pw123", Name: "Ann"}
	assert.Nil(t, validateRequest(&req))
}

func TestValidateSignUpRequestFailures(t *testing.T) {
	req := dto.SignUpRequest{Email: "not-an-email", Password: "", Name: ""}
	appErr := validateRequest(&req)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "email must be a valid email address")
	assert.Contains(t, appErr.Message, "password is required")
	assert.Contains(t, appErr.Message, "name is required")
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Alice", sanitizeInput("  Alice  "))
	assert.Equal(t, "Alice", sanitizeInput("Ali\x00ce"))
	assert.Equal(t, "A\tB", sanitizeInput("A\tB\n"))
}

func TestSanitizeEmailPreservesCase(t *testing.T) {
	assert.Equal(t, "Alice@Example.COM", sanitizeEmail("  Alice@Example.COM "))
}
