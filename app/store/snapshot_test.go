package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/attendo/app/attendance"
)

func newTestSnapshot(t *testing.T) (*Snapshot, *SQLite) {
	t.Helper()
	kv, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewSnapshot(kv), kv
}

func TestSnapshot_LoadMissing(t *testing.T) {
	snap, _ := newTestSnapshot(t)
	subjects, err := snap.Load()
	require.NoError(t, err)
	assert.NotNil(t, subjects)
	assert.Empty(t, subjects)
}

func TestSnapshot_SaveLoadRemove(t *testing.T) {
	snap, kv := newTestSnapshot(t)

	subjects := []attendance.Subject{{ID: "1", Name: "Math", Present: 1, Total: 2}, {ID: "2", Name: "Art"}}
	require.NoError(t, snap.Save(subjects))

	raw, err := kv.Get(SubjectsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","name":"Math","present":1,"total":2},{"id":"2","name":"Art","present":0,"total":0}]`, string(raw))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, subjects, loaded)

	require.NoError(t, snap.Save(nil))
	raw, err = kv.Get(SubjectsKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	require.NoError(t, snap.Remove())
	_, err = kv.Get(SubjectsKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshot_LoadLegacyAndMalformed(t *testing.T) {
	snap, kv := newTestSnapshot(t)

	require.NoError(t, kv.Set(SubjectsKey, []byte(`[{"name":"Physics","present":3,"total":4}]`)))
	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, []attendance.Subject{{Name: "Physics", Present: 3, Total: 4}}, loaded)

	require.NoError(t, kv.Set(SubjectsKey, []byte(`null`)))
	loaded, err = snap.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, kv.Set(SubjectsKey, []byte(`{not json`)))
	_, err = snap.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSnapshot_WithTracker(t *testing.T) {
	snap, _ := newTestSnapshot(t)

	tr := attendance.NewTracker(snap)
	require.NoError(t, tr.Add("Math"))
	require.NoError(t, tr.Add("Art"))
	m, err := tr.At(1)
	require.NoError(t, err)
	require.NoError(t, tr.MarkPresent(m.ID))

	reloaded := attendance.NewTracker(snap)
	assert.Equal(t, tr.Subjects(), reloaded.Subjects())

	require.NoError(t, reloaded.RemoveAll())
	assert.Empty(t, attendance.NewTracker(snap).Subjects())
}

func TestSnapshot_CustomKey(t *testing.T) {
	_, kv := newTestSnapshot(t)
	snap := &Snapshot{KV: kv, Key: "other"}
	require.NoError(t, snap.Save([]attendance.Subject{{ID: "1", Name: "a"}}))
	_, err := kv.Get(SubjectsKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = kv.Get("other")
	require.NoError(t, err)
}
