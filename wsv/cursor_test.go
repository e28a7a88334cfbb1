package wsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryjones/iroha/db/memdb"
)

func newTestCursor(t *testing.T) (*Storage, *Cursor) {
	s := NewStorage(memdb.New())
	c, err := s.Begin()
	require.Nil(t, err)
	return s, c
}

func TestCursorGetPolicies(t *testing.T) {
	_, c := newTestCursor(t)
	defer c.Rollback()

	require.Nil(t, c.PutString("domain/test", "user"))

	v, ok, err := c.Get("domain/test", MustExist)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user", string(v))

	_, _, err = c.Get("domain/none", MustExist)
	assert.ErrorIs(t, err, ErrMustExist)

	_, _, err = c.Get("domain/test", MustNotExist)
	assert.ErrorIs(t, err, ErrMustNotExist)

	_, ok, err = c.Get("domain/none", CanExist)
	assert.Nil(t, err)
	assert.False(t, ok)
}

func TestCursorSavepointRollback(t *testing.T) {
	_, c := newTestCursor(t)
	defer c.Rollback()

	require.Nil(t, c.PutString("a", "1"))
	c.Savepoint("tx")
	require.Nil(t, c.PutString("b", "2"))
	require.Nil(t, c.Delete("a"))

	require.Nil(t, c.RollbackToSavepoint("tx"))

	_, ok, _ := c.Get("b", CanExist)
	assert.False(t, ok)
	v, ok, _ := c.Get("a", CanExist)
	assert.True(t, ok)
	assert.Equal(t, "1", string(v))

	// the savepoint survives a rollback to it
	require.Nil(t, c.PutString("c", "3"))
	require.Nil(t, c.ReleaseSavepoint("tx"))
	v, ok, _ = c.Get("c", CanExist)
	assert.True(t, ok)
	assert.Equal(t, "3", string(v))
}

func TestCursorRollbackToUnknownSavepoint(t *testing.T) {
	_, c := newTestCursor(t)
	defer c.Rollback()

	assert.ErrorIs(t, c.RollbackToSavepoint("nope"), ErrNoSavepoint)
	assert.ErrorIs(t, c.ReleaseSavepoint("nope"), ErrNoSavepoint)
}

func TestCursorCommitPersists(t *testing.T) {
	s, c := newTestCursor(t)
	require.Nil(t, c.PutString("account/test/bob/quorum", "1"))
	require.Nil(t, c.Commit())

	c2, err := s.Begin()
	require.Nil(t, err)
	defer c2.Rollback()
	v, ok, err := c2.Get("account/test/bob/quorum", CanExist)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", string(v))
}

func TestCursorEnumerateMergesOverlay(t *testing.T) {
	s, c := newTestCursor(t)
	require.Nil(t, c.PutString("account/test/bob/signatories/aa", ""))
	require.Nil(t, c.Commit())

	c2, err := s.Begin()
	require.Nil(t, err)
	defer c2.Rollback()
	require.Nil(t, c2.PutString("account/test/bob/signatories/bb", ""))
	require.Nil(t, c2.PutString("account/test/alice/signatories/cc", ""))

	var keys []string
	err = c2.Enumerate(SignatoryPrefix("test", "bob"), func(k string, v []byte) bool {
		keys = append(keys, k)
		return true
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{
		"account/test/bob/signatories/aa",
		"account/test/bob/signatories/bb",
	}, keys)
}

func TestUintCodec(t *testing.T) {
	v, err := DecodeUint(EncodeUint(42))
	assert.Nil(t, err)
	assert.Equal(t, uint64(42), v)
}
