package provision

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Provisioner reconciles the live store against a desired-state document.
// Running it is idempotent: a second pass over an unchanged document
// re-asserts the same values and changes nothing else.
type Provisioner struct {
	store  Store
	logger *logrus.Logger
}

func New(store Store, logger *logrus.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger}
}

// Run loads the desired-state document at path and applies it. An empty path
// means provisioning was not requested and is a no-op success.
func (p *Provisioner) Run(ctx context.Context, path string) error {
	if path == "" {
		p.logger.Debug("no provisioning file configured, skipping")
		return nil
	}
	st, err := LoadStateFile(path)
	if err != nil {
		return err
	}
	return p.Apply(ctx, st)
}

// Apply reconciles all four entity kinds in dependency order. The order is
// mandatory: each later kind's reference validation checks the earlier kinds'
// declared keys. The first failure aborts the run; kinds already applied stay
// committed, which is safe because a re-run converges to the same state.
func (p *Provisioner) Apply(ctx context.Context, st *State) error {
	st.normalize()
	if err := p.applyUsers(ctx, st); err != nil {
		return err
	}
	if err := p.applyDomains(ctx, st); err != nil {
		return err
	}
	if err := p.applyMailboxes(ctx, st); err != nil {
		return err
	}
	return p.applyAliases(ctx, st)
}

func (p *Provisioner) applyUsers(ctx context.Context, st *State) error {
	return p.store.WithinTx(ctx, func(tx Tx) error {
		known, err := tx.SelectProvisioned(ctx, "users", "username")
		if err != nil {
			return err
		}
		orphans := orphanKeys(known, st.Users)
		p.logCounts("users", len(st.Users), len(known), len(orphans))
		if err := deleteOrphans(ctx, tx, "users", "username", orphans); err != nil {
			return err
		}

		for _, name := range sortedKeys(st.Users) {
			u := st.Users[name]
			hash, err := valueOrFile(u.PasswordHash)
			if err != nil {
				return entityErr("user", name, err)
			}
			err = tx.Upsert(ctx, Row{
				Table:     "users",
				KeyColumn: "username",
				Key:       name,
				Columns: []Column{
					{Name: "password_hash", Value: hash},
					{Name: "admin", Value: u.Admin},
					{Name: "active", Value: *u.Active},
				},
			})
			if err != nil {
				return entityErr("user", name, err)
			}
		}
		return nil
	})
}

func (p *Provisioner) applyDomains(ctx context.Context, st *State) error {
	return p.store.WithinTx(ctx, func(tx Tx) error {
		known, err := tx.SelectProvisioned(ctx, "domains", "domain")
		if err != nil {
			return err
		}
		orphans := orphanKeys(known, st.Domains)
		p.logCounts("domains", len(st.Domains), len(known), len(orphans))
		if err := deleteOrphans(ctx, tx, "domains", "domain", orphans); err != nil {
			return err
		}

		for _, name := range sortedKeys(st.Domains) {
			d := st.Domains[name]
			if _, ok := st.Users[d.Owner]; !ok {
				return entityErr("domain", name, missingRef("owner", d.Owner, "user"))
			}
			err = tx.Upsert(ctx, Row{
				Table:     "domains",
				KeyColumn: "domain",
				Key:       name,
				Columns: []Column{
					{Name: "catch_all", Value: d.CatchAll},
					{Name: "public", Value: d.Public},
					{Name: "active", Value: *d.Active},
					{Name: "owner", Value: d.Owner},
				},
			})
			if err != nil {
				return entityErr("domain", name, err)
			}
		}
		return nil
	})
}

func (p *Provisioner) applyMailboxes(ctx context.Context, st *State) error {
	return p.store.WithinTx(ctx, func(tx Tx) error {
		known, err := tx.SelectProvisioned(ctx, "mailboxes", "address")
		if err != nil {
			return err
		}
		orphans := orphanKeys(known, st.Mailboxes)
		p.logCounts("mailboxes", len(st.Mailboxes), len(known), len(orphans))
		if err := deleteOrphans(ctx, tx, "mailboxes", "address", orphans); err != nil {
			return err
		}

		for _, name := range sortedKeys(st.Mailboxes) {
			m := st.Mailboxes[name]
			_, domain, ok := strings.Cut(name, "@")
			if !ok {
				return entityErr("mailbox", name, errInvalidAddress)
			}
			if _, ok := st.Domains[domain]; !ok {
				return entityErr("mailbox", name, missingRef("domain", domain, "domain"))
			}
			if _, ok := st.Users[m.Owner]; !ok {
				return entityErr("mailbox", name, missingRef("owner", m.Owner, "user"))
			}

			hash, err := valueOrFile(m.PasswordHash)
			if err != nil {
				return entityErr("mailbox", name, err)
			}
			// An undeclared token is stored as NULL; a declared one is
			// resolved and must meet the minimum length, even when empty.
			var apiToken any
			if m.APIToken != nil {
				token, err := valueOrFile(*m.APIToken)
				if err != nil {
					return entityErr("mailbox", name, err)
				}
				if len(token) < 16 {
					return entityErr("mailbox", name, errShortAPIToken)
				}
				apiToken = token
			}

			err = tx.Upsert(ctx, Row{
				Table:     "mailboxes",
				KeyColumn: "address",
				Key:       name,
				Columns: []Column{
					{Name: "domain", Value: domain},
					{Name: "password_hash", Value: hash},
					{Name: "api_token", Value: apiToken},
					{Name: "active", Value: *m.Active},
					{Name: "owner", Value: m.Owner},
				},
			})
			if err != nil {
				return entityErr("mailbox", name, err)
			}
		}
		return nil
	})
}

func (p *Provisioner) applyAliases(ctx context.Context, st *State) error {
	return p.store.WithinTx(ctx, func(tx Tx) error {
		known, err := tx.SelectProvisioned(ctx, "aliases", "address")
		if err != nil {
			return err
		}
		orphans := orphanKeys(known, st.Aliases)
		p.logCounts("aliases", len(st.Aliases), len(known), len(orphans))
		if err := deleteOrphans(ctx, tx, "aliases", "address", orphans); err != nil {
			return err
		}

		for _, name := range sortedKeys(st.Aliases) {
			a := st.Aliases[name]
			_, domain, ok := strings.Cut(name, "@")
			if !ok {
				return entityErr("alias", name, errInvalidAddress)
			}
			if _, ok := st.Domains[domain]; !ok {
				return entityErr("alias", name, missingRef("domain", domain, "domain"))
			}
			_, isUser := st.Users[a.Owner]
			_, isMailbox := st.Mailboxes[a.Owner]
			if !isUser && !isMailbox {
				return entityErr("alias", name, missingRef("owner", a.Owner, "user or mailbox"))
			}

			err = tx.Upsert(ctx, Row{
				Table:     "aliases",
				KeyColumn: "address",
				Key:       name,
				Columns: []Column{
					{Name: "domain", Value: domain},
					{Name: "target", Value: a.Target},
					{Name: "comment", Value: a.Comment},
					{Name: "active", Value: *a.Active},
					{Name: "owner", Value: a.Owner},
				},
			})
			if err != nil {
				return entityErr("alias", name, err)
			}
		}
		return nil
	})
}

// logCounts summarizes one kind's pass: how many entities the document
// declares, how many provisioned rows get removed, how many are new.
func (p *Provisioner) logCounts(kind string, declared, known, removed int) {
	p.logger.WithFields(logrus.Fields{
		"declared": declared,
		"added":    declared - known + removed,
		"removed":  removed,
	}).Infof("provisioning %s", kind)
}

// orphanKeys computes provisioned-but-no-longer-declared keys, sorted.
func orphanKeys[V any](known map[string]struct{}, declared map[string]V) []string {
	var orphans []string
	for k := range known {
		if _, ok := declared[k]; !ok {
			orphans = append(orphans, k)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// deleteOrphans runs before the upsert pass so a renamed entity (old key
// removed, new key added) is a delete plus an insert, never a misdirected
// update.
func deleteOrphans(ctx context.Context, tx Tx, table, keyColumn string, orphans []string) error {
	for _, key := range orphans {
		if err := tx.DeleteByKey(ctx, table, keyColumn, key); err != nil {
			return err
		}
	}
	return nil
}
