package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor(config.Database{Driver: "mysql", User: "u", Password: "p", Host: "db", Port: "3306", Name: "futapp"})
	assert.NoError(t, err)

	_, err = dialectorFor(config.Database{Driver: "sqlite", DSN: "file::memory:"})
	assert.NoError(t, err)

	_, err = dialectorFor(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenTestDBMigrates(t *testing.T) {
	db := OpenTestDB(t)
	require.NoError(t, Ping(db))

	for _, table := range []string{"payment_transactions", "payment_transaction_events", "join_requests"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
