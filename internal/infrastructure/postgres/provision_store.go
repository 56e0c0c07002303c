package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailadm/mailadm/internal/provision"
)

// ProvisionStore backs the reconciler with a Postgres pool. Every call to
// WithinTx wraps one entity kind's orphan deletion and upserts in a single
// transaction, so a kind is applied all-or-nothing.
//
// Table and column names are interpolated into SQL text; they come from the
// reconciler's fixed catalog, never from the desired-state document.
type ProvisionStore struct {
	pool *pgxpool.Pool
}

func NewProvisionStore(pool *pgxpool.Pool) *ProvisionStore {
	return &ProvisionStore{pool: pool}
}

func (s *ProvisionStore) WithinTx(ctx context.Context, fn func(tx provision.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&provisionTx{tx: pgtx}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

type provisionTx struct {
	tx pgx.Tx
}

func (t *provisionTx) SelectProvisioned(ctx context.Context, table, keyColumn string) (map[string]struct{}, error) {
	rows, err := t.tx.Query(ctx, selectProvisionedSQL(table, keyColumn))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (t *provisionTx) DeleteByKey(ctx context.Context, table, keyColumn, key string) error {
	_, err := t.tx.Exec(ctx, deleteByKeySQL(table, keyColumn), key)
	return err
}

func (t *provisionTx) Upsert(ctx context.Context, row provision.Row) error {
	sql, args := upsertSQL(row)
	_, err := t.tx.Exec(ctx, sql, args...)
	return err
}

func selectProvisionedSQL(table, keyColumn string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE provisioned = TRUE", keyColumn, table)
}

func deleteByKeySQL(table, keyColumn string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, keyColumn)
}

// upsertSQL renders an insert that marks the row provisioned, falling back to
// an update of every writable column on primary-key conflict. Bind order is
// the key first, then row.Columns in order.
func upsertSQL(row provision.Row) (string, []any) {
	cols := make([]string, 0, len(row.Columns)+2)
	binds := make([]string, 0, len(row.Columns)+1)
	sets := make([]string, 0, len(row.Columns)+1)
	args := make([]any, 0, len(row.Columns)+1)

	cols = append(cols, row.KeyColumn)
	binds = append(binds, "$1")
	args = append(args, row.Key)

	for i, c := range row.Columns {
		bind := fmt.Sprintf("$%d", i+2)
		cols = append(cols, c.Name)
		binds = append(binds, bind)
		sets = append(sets, c.Name+" = "+bind)
		args = append(args, c.Value)
	}
	cols = append(cols, "provisioned")
	binds = append(binds, "TRUE")
	sets = append(sets, "provisioned = TRUE")

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		row.Table,
		strings.Join(cols, ", "),
		strings.Join(binds, ", "),
		row.KeyColumn,
		strings.Join(sets, ", "),
	)
	return sql, args
}

var _ provision.Store = (*ProvisionStore)(nil)
