package provision

import (
	"fmt"
	"os"
	"strings"
)

// valueOrFile resolves a secret-bearing field. A value of the exact form
// %{file:<path>}% is replaced by the trimmed contents of the file at <path>;
// any other value is returned unchanged. This keeps password hashes and API
// tokens out of the desired-state document itself.
func valueOrFile(value string) (string, error) {
	rest, ok := strings.CutPrefix(value, "%{file:")
	if !ok {
		return value, nil
	}
	path, ok := strings.CutSuffix(rest, "}%")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
