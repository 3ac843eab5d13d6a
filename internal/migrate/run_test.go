package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSortsAndSkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql":  {Data: []byte("SELECT 2;")},
		"migrations/0001_a.sql":  {Data: []byte("SELECT 1;")},
		"migrations/README.md":   {Data: []byte("notes")},
		"migrations/nested/x.sq": {Data: []byte("ignored")},
	}

	got, err := Load(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0001_a", got[0].Version)
	assert.Equal(t, "0002_b", got[1].Version)
	assert.Equal(t, "SELECT 1;", got[0].SQL)
}

func TestLoadRejectsEmptyMigration(t *testing.T) {
	_, err := Load(fstest.MapFS{"migrations/0001_a.sql": {Data: []byte("  \n")}})
	require.ErrorContains(t, err, "empty")
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	got, err := Load(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001_summaries", got[0].Version)
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: "0001"}, {Version: "0002"}, {Version: "0003"}}
	got := Pending(all, map[string]bool{"0001": true, "0003": true})
	require.Len(t, got, 1)
	assert.Equal(t, "0002", got[0].Version)
	assert.Len(t, Pending(all, nil), 3)
}
