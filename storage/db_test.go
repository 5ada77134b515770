package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseDatabase(t *testing.T, db Database) {
	t.Helper()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("acct:b"), []byte("2")))
	require.NoError(t, db.Put([]byte("acct:a"), []byte("1")))
	require.NoError(t, db.Put([]byte("meta:x"), []byte("x")))

	ok, err := db.Has([]byte("acct:a"))
	require.NoError(t, err)
	require.True(t, ok)

	var keys []string
	require.NoError(t, db.ForEach([]byte("acct:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	}))
	require.Equal(t, []string{"acct:a", "acct:b"}, keys)

	batch := NewBatch()
	batch.Put([]byte("acct:c"), []byte("3"))
	batch.Delete([]byte("acct:a"))
	require.Equal(t, 2, batch.Len())
	require.NoError(t, db.Write(batch))

	_, err = db.Get([]byte("acct:a"))
	require.ErrorIs(t, err, ErrNotFound)
	got, err := db.Get([]byte("acct:c"))
	require.NoError(t, err)
	require.Equal(t, []byte("3"), got)

	require.NoError(t, db.Delete([]byte("meta:x")))
	ok, err = db.Has([]byte("meta:x"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	t.Cleanup(db.Close)
	exerciseDatabase(t, db)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	exerciseDatabase(t, db)
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	batch := NewBatch()
	batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, db1.Write(batch))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}
