package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndParse(t *testing.T) {
	tok, err := MintDevToken("test-secret", "user-42", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	subject, err := ParseDevToken("test-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestMint_EmptySecret(t *testing.T) {
	_, err := MintDevToken("", "user-42", time.Hour)
	assert.Error(t, err)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := MintDevToken("right", "user-42", time.Hour)
	require.NoError(t, err)

	_, err = ParseDevToken("wrong", tok)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	tok, err := MintDevToken("secret", "user-42", -time.Minute)
	require.NoError(t, err)

	_, err = ParseDevToken("secret", tok)
	assert.Error(t, err)
}
