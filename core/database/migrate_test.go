package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpScriptsSortedAndFiltered(t *testing.T) {
	src := fstest.MapFS{
		"000002_add_index.up.sql":       {Data: []byte("--")},
		"000001_create_orders.up.sql":   {Data: []byte("--")},
		"000001_create_orders.down.sql": {Data: []byte("--")},
		"README.md":                     {Data: []byte("#")},
		"nested/000003_x.up.sql":        {Data: []byte("--")},
	}
	assert.Equal(t, []string{
		"000001_create_orders.up.sql",
		"000002_add_index.up.sql",
	}, upScripts(src))
	assert.Empty(t, upScripts(fstest.MapFS{}))
}

func TestBetweenVersions(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql", "junk.up.sql"}

	assert.Equal(t, []string{"000002_b.up.sql", "000003_c.up.sql"}, between(files, 1, 3))
	assert.Empty(t, between(files, 3, 3))
	assert.Empty(t, between(files, 3, 1))
	assert.Equal(t, uint64(0), scriptVersion("junk.up.sql"))
	assert.Equal(t, uint64(12), scriptVersion("000012_x.up.sql"))
}

func TestResolveMigrationsDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "m")
	got, err := resolveMigrationsDir(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	got, err = resolveMigrationsDir("  ")
	require.NoError(t, err)
	assert.Equal(t, "migrations", filepath.Base(got))
}

func TestDSNs(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "orders", SSLMode: "disable"}
	assert.Equal(t, "user=bot password=pw host=db port=5432 dbname=orders sslmode=disable", cfg.KeywordDSN())
	assert.Equal(t, "postgres://bot:pw@db:5432/orders?sslmode=disable", cfg.URLDSN())
}

func TestDSNsEscapeCredentials(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "orders"}
	assert.Equal(t, "user=bot password='p@ss word' host=db port=5432 dbname=orders sslmode=''", cfg.KeywordDSN())
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/orders", cfg.URLDSN())
}
