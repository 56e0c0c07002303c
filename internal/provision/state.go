package provision

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/mailadm/mailadm/pkg/validation"
)

// State is the desired-state document: four keyed sections describing every
// machine-managed user, domain, mailbox and alias. Anything not listed here
// that was previously provisioned gets removed on the next reconciliation.
type State struct {
	Users     map[string]User    `toml:"users"`
	Domains   map[string]Domain  `toml:"domains"`
	Mailboxes map[string]Mailbox `toml:"mailboxes"`
	Aliases   map[string]Alias   `toml:"aliases"`
}

// User is keyed by username.
type User struct {
	PasswordHash string `toml:"password_hash" validate:"required"`
	Admin        bool   `toml:"admin"`
	Active       *bool  `toml:"active"`
}

// Domain is keyed by domain name.
type Domain struct {
	CatchAll string `toml:"catch_all"`
	Public   bool   `toml:"public"`
	Active   *bool  `toml:"active"`
	Owner    string `toml:"owner" validate:"required"`
}

// Mailbox is keyed by its full address (local@domain). APIToken distinguishes
// absent (no token, stored as NULL) from declared: any declared token,
// including an empty one, is subject to the minimum-length policy.
type Mailbox struct {
	PasswordHash string  `toml:"password_hash" validate:"required"`
	APIToken     *string `toml:"api_token"`
	Active       *bool   `toml:"active"`
	Owner        string  `toml:"owner" validate:"required"`
}

// Alias is keyed by its full address (local@domain).
type Alias struct {
	Target  string `toml:"target" validate:"required"`
	Comment string `toml:"comment"`
	Active  *bool  `toml:"active"`
	Owner   string `toml:"owner" validate:"required"`
}

// ParseState decodes and validates a desired-state document. Sections may be
// omitted entirely; omitted active flags default to true. The returned state
// is fully normalized: every Active pointer is non-nil.
func ParseState(data []byte) (*State, error) {
	var st State
	if err := toml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse desired state: %w", err)
	}
	if st.Users == nil {
		st.Users = map[string]User{}
	}
	if st.Domains == nil {
		st.Domains = map[string]Domain{}
	}
	if st.Mailboxes == nil {
		st.Mailboxes = map[string]Mailbox{}
	}
	if st.Aliases == nil {
		st.Aliases = map[string]Alias{}
	}

	for name, u := range st.Users {
		if err := validation.Struct(u); err != nil {
			return nil, fmt.Errorf("users.%s: %w", name, err)
		}
	}
	for name, d := range st.Domains {
		if err := validation.Var(name, "fqdn"); err != nil {
			return nil, fmt.Errorf("domains.%s: %w", name, err)
		}
		if err := validation.Struct(d); err != nil {
			return nil, fmt.Errorf("domains.%s: %w", name, err)
		}
	}
	for name, m := range st.Mailboxes {
		if err := validation.Struct(m); err != nil {
			return nil, fmt.Errorf("mailboxes.%s: %w", name, err)
		}
	}
	for name, a := range st.Aliases {
		if err := validation.Struct(a); err != nil {
			return nil, fmt.Errorf("aliases.%s: %w", name, err)
		}
	}
	st.normalize()
	return &st, nil
}

// normalize applies documented defaults in place: an omitted active flag
// means active. Safe to call on any State, however constructed.
func (st *State) normalize() {
	for name, u := range st.Users {
		u.Active = defaultTrue(u.Active)
		st.Users[name] = u
	}
	for name, d := range st.Domains {
		d.Active = defaultTrue(d.Active)
		st.Domains[name] = d
	}
	for name, m := range st.Mailboxes {
		m.Active = defaultTrue(m.Active)
		st.Mailboxes[name] = m
	}
	for name, a := range st.Aliases {
		a.Active = defaultTrue(a.Active)
		st.Aliases[name] = a
	}
}

// LoadStateFile reads and parses a desired-state document from disk.
func LoadStateFile(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read desired state %s: %w", path, err)
	}
	return ParseState(data)
}

func defaultTrue(b *bool) *bool {
	if b == nil {
		t := true
		return &t
	}
	return b
}

// sortedKeys returns the map's keys in lexical order so reconciliation walks
// entities deterministically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
