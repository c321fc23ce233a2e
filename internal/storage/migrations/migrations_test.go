package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 2)
	assert.Equal(t, "001_bet_records.sql", pg[0].name)
	assert.Equal(t, "002_ingest_runs.sql", pg[1].name)
	assert.Contains(t, pg[0].sql, "CREATE TABLE IF NOT EXISTS bet_records")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
}

func TestClickhouseMigrations_SplitCleanly(t *testing.T) {
	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)

	for _, m := range ch {
		require.NoError(t, validateNoSemicolonInStrings(m.sql), m.name)
		for _, stmt := range splitStatements(m.sql) {
			assert.False(t, strings.HasPrefix(stmt, "--"), "%s: comment leaked into statement", m.name)
			assert.NotContains(t, stmt, ";")
		}
	}
}

func TestSplitStatements(t *testing.T) {
	sql := "-- header\nCREATE TABLE a (x UInt8);\n\n-- second\nCREATE TABLE b (y UInt8);\n"
	assert.Equal(t, []string{"CREATE TABLE a (x UInt8)", "CREATE TABLE b (y UInt8)"}, splitStatements(sql))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b'"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://u:p@localhost:9000/washtrade")
	require.NoError(t, err)
	assert.Equal(t, "washtrade", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
