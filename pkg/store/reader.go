package store

import (
	"encoding/binary"
	"math"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

// Reader opens a finalized container file for reading.
type Reader struct {
	file  *os.File
	index fileIndex
}

// Open opens a container at path, validating its header and footer. A
// file without a complete footer (for example one abandoned by a failed
// write) does not open.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to open store").
			WithDetail("path", path)
	}

	r := &Reader{file: file}
	if err := r.readIndex(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readIndex() error {
	info, err := r.file.Stat()
	if err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to stat store")
	}
	if info.Size() < headerSize+trailerSize {
		return genoerrors.Newf(genoerrors.ErrorTypeData,
			"store too small (%d bytes), footer missing or file truncated", info.Size())
	}

	var header [headerSize]byte
	if _, err := r.file.ReadAt(header[:], 0); err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to read store header")
	}
	if string(header[:4]) != magic {
		return genoerrors.New(genoerrors.ErrorTypeData, "bad store magic, not a columnar store")
	}
	if header[4] != formatVersion {
		return genoerrors.Newf(genoerrors.ErrorTypeData,
			"unsupported store format version %d", header[4])
	}

	var trailer [trailerSize]byte
	if _, err := r.file.ReadAt(trailer[:], info.Size()-trailerSize); err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to read store trailer")
	}
	if string(trailer[8:]) != magic {
		return genoerrors.New(genoerrors.ErrorTypeData,
			"missing footer magic, store was not finalized")
	}

	footerLen := int64(binary.LittleEndian.Uint64(trailer[:8]))
	footerOffset := info.Size() - trailerSize - footerLen
	if footerLen <= 0 || footerOffset < headerSize {
		return genoerrors.Newf(genoerrors.ErrorTypeData, "corrupt footer length %d", footerLen)
	}

	footer := make([]byte, footerLen)
	if _, err := r.file.ReadAt(footer, footerOffset); err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to read store footer")
	}
	if err := json.Unmarshal(footer, &r.index); err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to decode store footer")
	}
	if r.index.Datasets == nil {
		r.index.Datasets = make(map[string]*datasetIndex)
	}
	return nil
}

// Datasets returns the dataset names, sorted.
func (r *Reader) Datasets() []string {
	names := make([]string, 0, len(r.index.Datasets))
	for name := range r.index.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDataset reports whether the container holds the named dataset.
func (r *Reader) HasDataset(name string) bool {
	_, ok := r.index.Datasets[name]
	return ok
}

// Attrs returns the container's string attributes.
func (r *Reader) Attrs() map[string]string {
	attrs := make(map[string]string, len(r.index.Attrs))
	for k, v := range r.index.Attrs {
		attrs[k] = v
	}
	return attrs
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Dataset provides access to one dataset in the container.
type Dataset struct {
	reader *Reader
	index  *datasetIndex
	name   string
}

// Dataset returns a handle to the named dataset.
func (r *Reader) Dataset(name string) (*Dataset, error) {
	ds, ok := r.index.Datasets[name]
	if !ok {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeData, "dataset %q not found", name)
	}
	if ds.DType != DTypeFloat32 {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeData,
			"dataset %q has unsupported dtype %q", name, ds.DType)
	}
	return &Dataset{reader: r, index: ds, name: name}, nil
}

// Shape returns rows and columns.
func (d *Dataset) Shape() (rows, cols int) {
	return d.index.Shape[0], d.index.Shape[1]
}

// ReadAll materializes the whole dataset row-major.
func (d *Dataset) ReadAll() ([]float32, error) {
	return d.ReadRows(0, d.index.Shape[0])
}

// ReadRows materializes rows [start, end) row-major, decompressing only
// the chunks that overlap the range.
func (d *Dataset) ReadRows(start, end int) ([]float32, error) {
	nRows, nCols := d.index.Shape[0], d.index.Shape[1]
	if start < 0 || end > nRows || start >= end {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeData,
			"invalid row range [%d, %d) for %d rows", start, end, nRows)
	}

	out := make([]float32, (end-start)*nCols)
	for _, chunk := range d.index.Chunks {
		chunkEnd := chunk.StartRow + chunk.NumRows
		if chunkEnd <= start || chunk.StartRow >= end {
			continue
		}

		values, err := d.readChunk(chunk)
		if err != nil {
			return nil, err
		}

		// Overlap between [start, end) and this chunk's rows.
		from := max(start, chunk.StartRow)
		to := min(end, chunkEnd)
		srcOffset := (from - chunk.StartRow) * nCols
		dstOffset := (from - start) * nCols
		copy(out[dstOffset:dstOffset+(to-from)*nCols], values[srcOffset:])
	}
	return out, nil
}

func (d *Dataset) readChunk(chunk chunkRef) ([]float32, error) {
	compressed := make([]byte, chunk.Size)
	if _, err := d.reader.file.ReadAt(compressed, chunk.Offset); err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to read chunk").
			WithDetail("dataset", d.name).
			WithDetail("start_row", chunk.StartRow)
	}

	rawSize := chunk.NumRows * d.index.Shape[1] * elementSize
	raw, err := decompress(d.index.Codec, compressed, rawSize)
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to decompress chunk").
			WithDetail("dataset", d.name).
			WithDetail("start_row", chunk.StartRow)
	}
	return decodeFloat32(raw), nil
}

// decodeFloat32 deserializes little-endian float32 bytes.
func decodeFloat32(raw []byte) []float32 {
	out := make([]float32, len(raw)/elementSize)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*elementSize:]))
	}
	return out
}
