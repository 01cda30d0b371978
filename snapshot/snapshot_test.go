package snapshot

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/logging"
	"github.com/jsphweid/rollindex/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Name:            "sketch",
		TicksPerQuarter: 96,
		Notes: []model.IndexedNote{
			{ID: 3, Note: model.Note{Pitch: 60, Start: fraction.Zero, Duration: fraction.TripletEighth, Velocity: 90}},
			{ID: 7, Note: model.Note{Pitch: 67, Start: fraction.MustNew(5, 4), Duration: fraction.Whole, Velocity: 1, Channel: 9}},
		},
	}
}

func TestWriteThenRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := testSnapshot()

	path, err := Write(dir, &s)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, Path(dir, s.ID), path)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Name, got.Name)
	assert.Equal(t, s.Notes, got.Notes)
	assert.True(t, s.SavedAt.Equal(got.SavedAt))

	// writing again keeps the id and replaces the file
	s.Notes = s.Notes[:1]
	again, err := Write(dir, &s)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	got, err = Read(path)
	require.NoError(t, err)
	assert.Len(t, got.Notes, 1)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	ids, err := List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, ids)

	first, second := testSnapshot(), testSnapshot()
	_, err = Write(dir, &first)
	require.NoError(t, err)
	_, err = Write(dir, &second)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(Path(dir, first.ID), time.Now(), time.Now().Add(-time.Hour)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-uuid.dat"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0o644))

	ids, err = List(dir)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID, first.ID}, ids)
}

func TestAutosaverDebounces(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()
	var captures atomic.Int32
	a := NewAutosaver(dir, 20*time.Millisecond, func() Snapshot {
		captures.Add(1)
		s := testSnapshot()
		s.ID = id
		return s
	}, logging.Discard())

	for i := 0; i < 10; i++ {
		a.Touch()
	}
	require.Eventually(t, func() bool {
		saves, _ := a.Stats()
		return saves == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), captures.Load())

	got, err := Read(Path(dir, id))
	require.NoError(t, err)
	assert.Len(t, got.Notes, 2)
}

func TestAutosaverFlushReportsErrors(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// a regular file where the directory should be
	a := NewAutosaver(blocker, time.Hour, testSnapshot, logging.Discard())
	assert.Error(t, a.Flush())
	saves, err := a.Stats()
	assert.Equal(t, 0, saves)
	assert.Error(t, err)
}

func TestConcurrentFlushes(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()
	var inCapture, overlapped atomic.Int32
	a := NewAutosaver(dir, time.Hour, func() Snapshot {
		if inCapture.Add(1) > 1 {
			overlapped.Add(1)
		}
		defer inCapture.Add(-1)
		time.Sleep(time.Millisecond)
		s := testSnapshot()
		s.ID = id
		return s
	}, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Flush())
		}()
	}
	wg.Wait()
	require.NoError(t, a.Flush())

	saves, err := a.Stats()
	require.NoError(t, err)
	assert.Equal(t, 9, saves)
	assert.Equal(t, int32(0), overlapped.Load())
	_, err = Read(Path(dir, id))
	require.NoError(t, err)
}
