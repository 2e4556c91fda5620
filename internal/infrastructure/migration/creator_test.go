package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"add stock orders table", "add_stock_orders_table"},
		{"Add-Line-Items", "add_line_items"},
		{"ADD_PUSH_STATUS", "add_push_status"},
		{"index  received   quantity", "index_received_quantity"},
		{"drop vend-credentials (v2)", "drop_vend_credentials_v2"},
		{"   padded   ", "padded"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sanitizeName(tc.in), "name %q", tc.in)
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes a matching up and down pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "add consignment id", "Track the ERP consignment per order")
		require.NoError(t, err)

		assert.Len(t, mf.Version, 14, "version is a sortable timestamp")
		assert.True(t, strings.HasSuffix(mf.UpPath, "_add_consignment_id.up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, "_add_consignment_id.down.sql"))

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- Migration: add consignment id")
		assert.Contains(t, string(up), "-- Description: Track the ERP consignment per order")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "(Rollback)")
		assert.Contains(t, string(down), "Rollback for Track the ERP consignment per order")
	})

	t.Run("creates the migrations directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "migrations")

		_, err := CreateMigration(dir, "initial schema", "")
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("lists each pair once", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20240101000000_initial_schema.up.sql",
			"20240101000000_initial_schema.down.sql",
			"20240201000000_add_push_status.up.sql",
			"20240201000000_add_push_status.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql\n"), 0o644))
		}

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"20240101000000_initial_schema",
			"20240201000000_add_push_status",
		}, migrations)
	})

	t.Run("missing directory lists as empty", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("ignores subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0o755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
