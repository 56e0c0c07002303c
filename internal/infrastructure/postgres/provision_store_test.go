package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailadm/mailadm/internal/provision"
)

func TestSelectProvisionedSQL(t *testing.T) {
	assert.Equal(t,
		"SELECT username FROM users WHERE provisioned = TRUE",
		selectProvisionedSQL("users", "username"))
}

func TestDeleteByKeySQL(t *testing.T) {
	assert.Equal(t,
		"DELETE FROM aliases WHERE address = $1",
		deleteByKeySQL("aliases", "address"))
}

func TestUpsertSQL(t *testing.T) {
	sql, args := upsertSQL(provision.Row{
		Table:     "users",
		KeyColumn: "username",
		Key:       "alice",
		Columns: []provision.Column{
			{Name: "password_hash", Value: "hash"},
			{Name: "admin", Value: true},
			{Name: "active", Value: false},
		},
	})

	assert.Equal(t,
		"INSERT INTO users (username, password_hash, admin, active, provisioned) "+
			"VALUES ($1, $2, $3, $4, TRUE) "+
			"ON CONFLICT (username) DO UPDATE SET "+
			"password_hash = $2, admin = $3, active = $4, provisioned = TRUE",
		sql)
	assert.Equal(t, []any{"alice", "hash", true, false}, args)
}

func TestUpsertSQLNoColumns(t *testing.T) {
	sql, args := upsertSQL(provision.Row{
		Table:     "users",
		KeyColumn: "username",
		Key:       "alice",
	})
	assert.Equal(t,
		"INSERT INTO users (username, provisioned) VALUES ($1, TRUE) "+
			"ON CONFLICT (username) DO UPDATE SET provisioned = TRUE",
		sql)
	assert.Equal(t, []any{"alice"}, args)
}
