package provision

import "context"

// Column is one writable column of an upserted row.
type Column struct {
	Name  string
	Value any
}

// Row describes a single keyed row to insert-or-update. Columns are ordered
// so generated SQL is stable. The store marks every upserted row provisioned.
type Row struct {
	Table     string
	KeyColumn string
	Key       string
	Columns   []Column
}

// Tx is the set of store operations available inside one entity kind's
// transaction.
type Tx interface {
	// SelectProvisioned returns the primary keys of all rows in table that
	// are currently flagged provisioned (machine-managed).
	SelectProvisioned(ctx context.Context, table, keyColumn string) (map[string]struct{}, error)

	// DeleteByKey removes a single row by primary key.
	DeleteByKey(ctx context.Context, table, keyColumn, key string) error

	// Upsert inserts the row with provisioned = TRUE, or on primary-key
	// conflict updates every listed column and re-asserts provisioned = TRUE.
	Upsert(ctx context.Context, row Row) error
}

// Store is the transactional executor the reconciler writes through. Each
// entity kind's orphan deletion plus upserts run inside a single transaction,
// so a kind is applied all-or-nothing.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
