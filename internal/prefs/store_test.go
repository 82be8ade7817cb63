package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chachabrian/rescuelink-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(testutil.OpenDB(t))
	require.NoError(t, err)
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "misc", "theme")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "misc", "theme", "dark"))
	require.NoError(t, s.Put(ctx, "misc", "theme", "light"))

	v, found, err := s.Get(ctx, "misc", "theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "light", v)

	require.NoError(t, s.Delete(ctx, "misc", "theme"))
	_, found, err = s.Get(ctx, "misc", "theme")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, NamespaceAuth, KeyEmail, "a@b.com"))
	require.NoError(t, s.Put(ctx, "other", KeyEmail, "x@y.com"))

	require.NoError(t, s.Clear(ctx, NamespaceAuth))

	all, err := s.All(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyEmail: "x@y.com"}, all)
}

func TestSession(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	sess, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{}, sess)

	require.NoError(t, s.SaveSession(ctx, "a@b.com"))
	sess, err = s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{Email: "a@b.com", Verified: true}, sess)

	require.NoError(t, s.ClearSession(ctx))
	sess, err = s.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, sess.Verified)
}

func TestUnreadCounters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := s.Increment(ctx, "dispatch-7")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	_, err := s.Increment(ctx, "dispatch-9")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, NamespaceUnread, "broken", "{not json"))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"dispatch-7": 3, "dispatch-9": 1}, counts)

	n, err := s.Increment(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Reset(ctx, "dispatch-7"))
	counts, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.NotContains(t, counts, "dispatch-7")
}

func TestOpenPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(ctx, "a@b.com"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	sess, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.True(t, sess.Verified)
}
