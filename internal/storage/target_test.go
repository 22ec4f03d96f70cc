package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/combinedd/internal/db"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database.DB)
}

func TestTargetStore_RoundTrip(t *testing.T) {
	s := NewTargetStore(openStore(t))

	_, ok, err := s.LoadTarget("living_room")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveTarget("living_room", 94))
	require.NoError(t, s.SaveTarget("living_room", 120))
	require.NoError(t, s.SaveTarget("bedroom", 10))

	target, ok, err := s.LoadTarget("living_room")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(120), target)

	require.NoError(t, s.Reset())
	_, ok, err = s.LoadTarget("bedroom")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Versioning(t *testing.T) {
	s := openStore(t)

	type doc struct {
		X int `json:"x"`
	}

	require.NoError(t, s.Save("k", "a", doc{X: 1}))
	require.NoError(t, s.Save("k", "a", doc{X: 2}))

	var got doc
	version, err := s.Load("k", "a", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, 2, got.X)

	require.NoError(t, s.Delete("k", "a"))
	got = doc{}
	version, err = s.Load("k", "a", &got)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.Zero(t, got.X)
}

func TestStore_ClearByKind(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save("a", "1", map[string]int{"v": 1}))
	require.NoError(t, s.Save("b", "1", map[string]int{"v": 1}))
	require.NoError(t, s.Clear("a"))

	var v map[string]int
	version, err := s.Load("a", "1", &v)
	require.NoError(t, err)
	assert.Zero(t, version)

	version, err = s.Load("b", "1", &v)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}
