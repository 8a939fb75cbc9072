package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-key", "ordercore", time.Hour)

	token, err := m.Generate("agent")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "agent", claims.Subject)
	assert.Equal(t, "ordercore", claims.Issuer)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewManager("key-a", "ordercore", time.Hour).Generate("agent")
	require.NoError(t, err)

	_, err = NewManager("key-b", "ordercore", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	token, err := NewManager("test-key", "someone-else", time.Hour).Generate("agent")
	require.NoError(t, err)

	_, err = NewManager("test-key", "ordercore", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	token, err := NewManager("test-key", "ordercore", -time.Minute).Generate("agent")
	require.NoError(t, err)

	_, err = NewManager("test-key", "ordercore", time.Hour).Validate(token)
	assert.Error(t, err)
}
