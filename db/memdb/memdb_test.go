package memdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryjones/iroha/db"
)

func TestMemdbBasicOps(t *testing.T) {
	d := New()
	require.Nil(t, d.NewBucket("B"))

	require.Nil(t, d.Put("B", []byte("k"), []byte("v")))
	v, err := d.Get("B", []byte("k"))
	require.Nil(t, err)
	assert.Equal(t, "v", string(v))

	_, err = d.Get("B", []byte("missing"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	require.Nil(t, d.Delete("B", []byte("k")))
	_, err = d.Get("B", []byte("k"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestMemdbIterateOrdered(t *testing.T) {
	d := New()
	require.Nil(t, d.Put("B", []byte("a/2"), []byte("2")))
	require.Nil(t, d.Put("B", []byte("a/1"), []byte("1")))
	require.Nil(t, d.Put("B", []byte("b/1"), []byte("x")))

	var keys []string
	require.Nil(t, d.Iterate("B", []byte("a/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}))
	assert.Equal(t, []string{"a/1", "a/2"}, keys)
}

func TestMemdbTxOverlay(t *testing.T) {
	d := New()
	require.Nil(t, d.Put("B", []byte("k"), []byte("old")))

	tx, err := d.Begin()
	require.Nil(t, err)
	require.Nil(t, tx.Put("B", []byte("k"), []byte("new")))
	require.Nil(t, tx.Put("B", []byte("k2"), []byte("v2")))

	// reads inside the tx observe its writes
	v, err := tx.Get("B", []byte("k"))
	require.Nil(t, err)
	assert.Equal(t, "new", string(v))

	// the base store stays untouched until commit
	v, err = d.Get("B", []byte("k"))
	require.Nil(t, err)
	assert.Equal(t, "old", string(v))

	require.Nil(t, tx.Commit())
	v, err = d.Get("B", []byte("k2"))
	require.Nil(t, err)
	assert.Equal(t, "v2", string(v))
}

func TestMemdbTxRollback(t *testing.T) {
	d := New()
	tx, err := d.Begin()
	require.Nil(t, err)
	require.Nil(t, tx.Put("B", []byte("k"), []byte("v")))
	require.Nil(t, tx.Rollback())

	_, err = d.Get("B", []byte("k"))
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}
