package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	s, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("favgrid-tester", []byte(`{"version":1}`)))

	got, err := s.Get("favgrid-tester", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":1}`), got)
}

func TestGetAbsentKeyReturnsDefault(t *testing.T) {
	s, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("missing", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got)
}

func TestDeleteRemovesValue(t *testing.T) {
	s, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Delete("k"))

	got, err := s.Get("k", []byte("default"))
	require.NoError(t, err)
	assert.Equal(t, []byte("default"), got)
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	s, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Delete("never-set"))
}

func TestValuesSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBlobStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("favgrid-tester", []byte("persisted")))
	require.NoError(t, s.Close())

	reopened, err := NewBlobStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("favgrid-tester", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestMemoryOnlyMode(t *testing.T) {
	s, err := NewBlobStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("k", []byte("v")))

	got, err := s.Get("k", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete("k"))
	got, err = s.Get("k", []byte("gone"))
	require.NoError(t, err)
	assert.Equal(t, []byte("gone"), got)
}
