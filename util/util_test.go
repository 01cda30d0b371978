package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherAllMidiPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mid", "b.MIDI", "notes.txt", "sub/c.mid"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	paths, err := GatherAllMidiPaths(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.mid"),
		filepath.Join(dir, "b.MIDI"),
		filepath.Join(dir, "sub", "c.mid"),
	}, paths)

	paths, err = GatherAllMidiPaths(dir, 2)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	single := filepath.Join(dir, "a.mid")
	paths, err = GatherAllMidiPaths(single, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{single}, paths)

	_, err = GatherAllMidiPaths(filepath.Join(dir, "missing"), 0)
	assert.Error(t, err)
}

func TestBinaryRoundTrip(t *testing.T) {
	type payload struct {
		Name  string
		Ticks []int64
	}
	path := filepath.Join(t.TempDir(), "p.dat")
	want := payload{"x", []int64{1, 2, 3}}
	require.NoError(t, CreateBinary(path, want))

	got, err := ReadBinary[payload](path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	_, err = ReadBinary[payload](path + ".missing")
	assert.Error(t, err)
}

func TestGenerics(t *testing.T) {
	assert := assert.New(t)
	assert.Equal([]int{1, 2, 3}, GetKeys(map[int]string{3: "c", 1: "a", 2: "b"}))
	assert.Equal(3, Min(3, 9))
	assert.Equal(uint8(2), Min[uint8](7, 2))
	assert.Equal(uint64(6), Sum([]int{1, 2, 3}))
}
