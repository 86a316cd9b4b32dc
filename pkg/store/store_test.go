package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

func writeTestStore(t *testing.T, path string, codec Codec, nRows, nCols int) []float32 {
	t.Helper()
	data := make([]float32, nRows*nCols)
	for i := range data {
		data[i] = float32(i)*0.25 - 7
	}

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.CreateDataset("matrix", nRows, nCols, DatasetOptions{Codec: codec}))
	require.NoError(t, w.WriteRows("matrix", 0, data))
	require.NoError(t, w.Close())
	return data
}

func TestRoundtripAllCodecs(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecGzip, CodecLZ4} {
		t.Run(string(codec), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "store.gcol")
			want := writeTestStore(t, path, codec, 13, 7)

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()

			ds, err := r.Dataset("matrix")
			require.NoError(t, err)
			rows, cols := ds.Shape()
			assert.Equal(t, 13, rows)
			assert.Equal(t, 7, cols)

			got, err := ds.ReadAll()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPartialReadAcrossChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunked.gcol")
	nRows, nCols := 20, 3
	data := make([]float32, nRows*nCols)
	for i := range data {
		data[i] = float32(i)
	}

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.CreateDataset("matrix", nRows, nCols, DatasetOptions{ChunkRows: 6}))
	// Write in four uneven chunks.
	require.NoError(t, w.WriteRows("matrix", 0, data[:6*nCols]))
	require.NoError(t, w.WriteRows("matrix", 6, data[6*nCols:12*nCols]))
	require.NoError(t, w.WriteRows("matrix", 12, data[12*nCols:18*nCols]))
	require.NoError(t, w.WriteRows("matrix", 18, data[18*nCols:]))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	ds, err := r.Dataset("matrix")
	require.NoError(t, err)

	// Range spanning a chunk boundary mid-chunk on both sides.
	got, err := ds.ReadRows(4, 14)
	require.NoError(t, err)
	assert.Equal(t, data[4*nCols:14*nCols], got)

	// Single row inside one chunk.
	got, err = ds.ReadRows(7, 8)
	require.NoError(t, err)
	assert.Equal(t, data[7*nCols:8*nCols], got)

	_, err = ds.ReadRows(10, 10)
	assert.Error(t, err)
	_, err = ds.ReadRows(-1, 3)
	assert.Error(t, err)
	_, err = ds.ReadRows(0, nRows+1)
	assert.Error(t, err)
}

func TestAttrsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attrs.gcol")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.CreateDataset("matrix", 1, 1, DatasetOptions{}))
	w.SetAttr("n_samples", "1")
	w.SetAttr("source", "unit-test")
	require.NoError(t, w.WriteRows("matrix", 0, []float32{42}))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	attrs := r.Attrs()
	assert.Equal(t, "1", attrs["n_samples"])
	assert.Equal(t, "unit-test", attrs["source"])
	assert.True(t, r.HasDataset("matrix"))
	assert.False(t, r.HasDataset("other"))
	assert.Equal(t, []string{"matrix"}, r.Datasets())
}

func TestNonSequentialWriteRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.gcol")

	w, err := Create(path)
	require.NoError(t, err)
	defer w.Abort() //nolint:errcheck
	require.NoError(t, w.CreateDataset("matrix", 10, 2, DatasetOptions{}))
	require.NoError(t, w.WriteRows("matrix", 0, make([]float32, 4)))

	// Skipping ahead, rewriting, and ragged rows are all rejected.
	err = w.WriteRows("matrix", 4, make([]float32, 4))
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeWrite))
	err = w.WriteRows("matrix", 0, make([]float32, 4))
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeWrite))
	err = w.WriteRows("matrix", 2, make([]float32, 3))
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeWrite))

	// Overflowing the declared shape is rejected too.
	err = w.WriteRows("matrix", 2, make([]float32, 20))
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeWrite))
}

func TestCloseRequiresCompleteDatasets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.gcol")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.CreateDataset("matrix", 10, 2, DatasetOptions{}))
	require.NoError(t, w.WriteRows("matrix", 0, make([]float32, 4)))

	err = w.Close()
	require.Error(t, err)
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeWrite))

	// The unfinalized file must not open.
	_, err = Open(path)
	assert.Error(t, err)
}

func TestAbortedFileDoesNotOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aborted.gcol")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.CreateDataset("matrix", 2, 2, DatasetOptions{}))
	require.NoError(t, w.WriteRows("matrix", 0, []float32{1, 2, 3, 4}))
	require.NoError(t, w.Abort())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeData))
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	cases := map[string][]byte{
		"empty":       {},
		"short":       []byte("GCLS"),
		"bad_magic":   append([]byte("NOPE\x01\x00\x00\x00"), make([]byte, 32)...),
		"bad_version": append([]byte("GCLS\x63\x00\x00\x00"), make([]byte, 32)...),
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, contents, 0o644))
			_, err := Open(path)
			assert.Error(t, err)
		})
	}
}

func TestCreateDatasetValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.gcol")

	w, err := Create(path)
	require.NoError(t, err)
	defer w.Abort() //nolint:errcheck

	assert.Error(t, w.CreateDataset("", 1, 1, DatasetOptions{}))
	assert.Error(t, w.CreateDataset("matrix", 0, 1, DatasetOptions{}))
	assert.Error(t, w.CreateDataset("matrix", 1, -1, DatasetOptions{}))

	require.NoError(t, w.CreateDataset("matrix", 1, 1, DatasetOptions{}))
	assert.Error(t, w.CreateDataset("matrix", 1, 1, DatasetOptions{}))

	err = w.WriteRows("missing", 0, []float32{1})
	assert.True(t, genoerrors.IsType(err, genoerrors.ErrorTypeWrite))
}

func TestParseCodec(t *testing.T) {
	for _, name := range []string{"zstd", "gzip", "lz4", "none"} {
		codec, err := ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, Codec(name), codec)
	}

	_, err := ParseCodec("")
	assert.Error(t, err)
	_, err = ParseCodec("snappy")
	assert.Error(t, err)
}
