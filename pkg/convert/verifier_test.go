package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/genoconv/pkg/store"
)

func TestVerifyValidStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.gcol")

	sw, err := store.Create(path)
	require.NoError(t, err)
	require.NoError(t, sw.CreateDataset(DatasetGenotypes, 2, 3, store.DatasetOptions{}))
	require.NoError(t, sw.WriteRows(DatasetGenotypes, 0, []float32{1, 2, 3, 4, 5, 6}))
	require.NoError(t, sw.Close())

	result := Verify(path)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Reason)
}

func TestVerifyMissingDatasetNamesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrongkey.gcol")

	sw, err := store.Create(path)
	require.NoError(t, err)
	require.NoError(t, sw.CreateDataset("something_else", 1, 1, store.DatasetOptions{}))
	require.NoError(t, sw.WriteRows("something_else", 0, []float32{1}))
	require.NoError(t, sw.Close())

	result := Verify(path)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, DatasetGenotypes)
}

func TestVerifyMissingFile(t *testing.T) {
	result := Verify(filepath.Join(t.TempDir(), "nope.gcol"))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Reason)
}

func TestVerifyTruncatedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.gcol")
	require.NoError(t, os.WriteFile(path, []byte("GCLS\x01\x00\x00\x00partial"), 0o644))

	result := Verify(path)
	assert.False(t, result.Valid)
}
