package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	universys "github.com/universys/universyslite"
)

func TestListOrdersByVersion(t *testing.T) {
	files := fstest.MapFS{
		"sql/010_late.sql": {Data: []byte("SELECT 1;")},
		"sql/002_next.sql": {Data: []byte("SELECT 1;")},
		"sql/001_init.sql": {Data: []byte("SELECT 1;")},
		"sql/README.md":    {Data: []byte("docs")},
		"sql/nested/x.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := List(files, "sql")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"001", "002", "010"}, []string{got[0].Version, got[1].Version, got[2].Version})
	assert.Equal(t, "sql/001_init.sql", got[0].Path)
}

func TestListRejectsBadNames(t *testing.T) {
	_, err := List(fstest.MapFS{"sql/init.sql": {Data: []byte("x")}}, "sql")
	assert.Error(t, err)

	_, err = List(fstest.MapFS{
		"sql/001_a.sql": {Data: []byte("x")},
		"sql/001_b.sql": {Data: []byte("x")},
	}, "sql")
	assert.ErrorContains(t, err, "share version 001")
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := List(universys.Migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "001", got[0].Version)
}
