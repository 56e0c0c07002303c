package provision

import (
	"errors"
	"fmt"
)

var (
	errInvalidAddress = errors.New("invalid address")
	errShortAPIToken  = errors.New("API tokens must be at least 16 characters long")
)

// EntityError reports a failure to reconcile one declared entity. It carries
// enough context (kind, key, cause) to log meaningfully at the fail-fast
// startup boundary.
type EntityError struct {
	Kind string // "user", "domain", "mailbox", "alias"
	Key  string
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("failed to provision %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

func entityErr(kind, key string, err error) error {
	return &EntityError{Kind: kind, Key: key, Err: err}
}

func missingRef(field, ref, want string) error {
	return fmt.Errorf("%s %q must be a provisioned %s", field, ref, want)
}
