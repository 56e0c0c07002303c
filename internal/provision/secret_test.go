package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOrFileLiteral(t *testing.T) {
	got, err := valueOrFile("secret")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestValueOrFileIndirection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("secret\n"), 0o600))

	got, err := valueOrFile("%{file:" + path + "}%")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestValueOrFileUnterminatedWrapper(t *testing.T) {
	// Missing the closing marker: not an indirection, passes through.
	got, err := valueOrFile("%{file:/etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "%{file:/etc/passwd", got)
}

func TestValueOrFileUnreadable(t *testing.T) {
	_, err := valueOrFile("%{file:" + filepath.Join(t.TempDir(), "absent") + "}%")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read secret file")
}

func TestValueOrFileEmptyValue(t *testing.T) {
	got, err := valueOrFile("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
