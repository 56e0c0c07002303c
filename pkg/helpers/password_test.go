package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2pass")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2pass", hash)

	assert.True(t, CompareHashAndPassword(hash, "hunter2pass"))
	assert.False(t, CompareHashAndPassword(hash, "wrong"))
}

func TestCompareHashAndPasswordBadHash(t *testing.T) {
	assert.False(t, CompareHashAndPassword("not-a-bcrypt-hash", "hunter2pass"))
}
