package store

import (
	"encoding/binary"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

// Writer creates a container file. Datasets are declared up front with
// their final shape and layout, then filled by strictly ascending,
// non-overlapping row-range writes. Close finalizes the footer; a file
// abandoned before Close is not a valid store.
type Writer struct {
	file   *os.File
	path   string
	offset int64
	index  fileIndex
	closed bool
}

// DatasetOptions configures a dataset's on-disk layout.
type DatasetOptions struct {
	// Codec selects per-chunk compression. Empty means zstd.
	Codec Codec
	// ChunkRows is the nominal rows-per-chunk recorded in the layout.
	// 0 means each WriteRows call becomes one chunk.
	ChunkRows int
}

// Create creates a new container file at path, truncating any existing
// file.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to create store").
			WithDetail("path", path)
	}

	var header [headerSize]byte
	copy(header[:4], magic)
	header[4] = formatVersion
	if _, err := file.Write(header[:]); err != nil {
		_ = file.Close()
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to write store header")
	}

	return &Writer{
		file:   file,
		path:   path,
		offset: headerSize,
		index: fileIndex{
			Version:  formatVersion,
			Datasets: make(map[string]*datasetIndex),
		},
	}, nil
}

// CreateDataset declares a dataset with its final shape before any data
// is written to it.
func (w *Writer) CreateDataset(name string, nRows, nCols int, opts DatasetOptions) error {
	if w.closed {
		return genoerrors.New(genoerrors.ErrorTypeWrite, "store writer is closed")
	}
	if name == "" {
		return genoerrors.New(genoerrors.ErrorTypeConfig, "dataset name must not be empty")
	}
	if nRows <= 0 || nCols <= 0 {
		return genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"invalid dataset shape %dx%d", nRows, nCols)
	}
	if _, exists := w.index.Datasets[name]; exists {
		return genoerrors.Newf(genoerrors.ErrorTypeConfig, "dataset %q already exists", name)
	}

	codec := opts.Codec
	if codec == "" {
		codec = CodecZstd
	}

	w.index.Datasets[name] = &datasetIndex{
		Shape:     [2]int{nRows, nCols},
		DType:     DTypeFloat32,
		Codec:     codec,
		ChunkRows: opts.ChunkRows,
	}
	return nil
}

// WriteRows writes len(data)/nCols rows starting at startRow. Writes to a
// dataset must be sequential: startRow must equal the number of rows
// already written, and the data length must be a whole number of rows.
func (w *Writer) WriteRows(name string, startRow int, data []float32) error {
	if w.closed {
		return genoerrors.New(genoerrors.ErrorTypeWrite, "store writer is closed")
	}
	ds, exists := w.index.Datasets[name]
	if !exists {
		return genoerrors.Newf(genoerrors.ErrorTypeWrite, "dataset %q not created", name)
	}

	nCols := ds.Shape[1]
	if len(data) == 0 || len(data)%nCols != 0 {
		return genoerrors.Newf(genoerrors.ErrorTypeWrite,
			"data length %d is not a whole number of %d-column rows", len(data), nCols)
	}
	nRows := len(data) / nCols

	if written := ds.rowsWritten(); startRow != written {
		return genoerrors.Newf(genoerrors.ErrorTypeWrite,
			"non-sequential write at row %d, next expected row is %d", startRow, written)
	}
	if startRow+nRows > ds.Shape[0] {
		return genoerrors.Newf(genoerrors.ErrorTypeWrite,
			"write of %d rows at row %d exceeds dataset shape %dx%d",
			nRows, startRow, ds.Shape[0], ds.Shape[1])
	}

	raw := encodeFloat32(data)
	compressed, err := compress(ds.Codec, raw)
	if err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to compress chunk")
	}

	if _, err := w.file.Write(compressed); err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to write chunk").
			WithDetail("dataset", name).
			WithDetail("start_row", startRow)
	}

	ds.Chunks = append(ds.Chunks, chunkRef{
		StartRow: startRow,
		NumRows:  nRows,
		Offset:   w.offset,
		Size:     int64(len(compressed)),
	})
	w.offset += int64(len(compressed))
	return nil
}

// SetAttr records a string attribute in the footer.
func (w *Writer) SetAttr(key, value string) {
	if w.index.Attrs == nil {
		w.index.Attrs = make(map[string]string)
	}
	w.index.Attrs[key] = value
}

// Close verifies every dataset is fully written, writes the footer, and
// closes the file. After a failed Close the file must be treated as
// invalid.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	for name, ds := range w.index.Datasets {
		if written := ds.rowsWritten(); written != ds.Shape[0] {
			_ = w.file.Close()
			return genoerrors.Newf(genoerrors.ErrorTypeWrite,
				"dataset %q has %d of %d rows written", name, written, ds.Shape[0])
		}
	}

	footer, err := json.Marshal(&w.index)
	if err != nil {
		_ = w.file.Close()
		return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to encode footer")
	}

	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint64(trailer[:8], uint64(len(footer)))
	copy(trailer[8:], magic)

	if _, err := w.file.Write(footer); err != nil {
		_ = w.file.Close()
		return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to write footer")
	}
	if _, err := w.file.Write(trailer[:]); err != nil {
		_ = w.file.Close()
		return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to write trailer")
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to sync store")
	}
	return w.file.Close()
}

// Abort closes the file without writing a footer, leaving it invalid.
// Used when a job fails mid-write; the partial file is not deleted.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// encodeFloat32 serializes values as little-endian float32 bytes.
func encodeFloat32(values []float32) []byte {
	out := make([]byte, len(values)*elementSize)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*elementSize:], math.Float32bits(v))
	}
	return out
}
