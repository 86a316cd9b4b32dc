// Package store implements the on-disk columnar container the converter
// writes: a single file holding named two-dimensional datasets with a
// chunked, compressed layout.
//
// # File layout
//
// The file opens with an 8-byte header (magic, format version, reserved),
// followed by chunk payloads appended in write order, each compressed
// independently. A JSON index footer closes the file: it maps dataset
// names to their shape, element type, codec, nominal chunk layout, and the
// offset/size of every chunk, plus free-form string attributes. The last
// 12 bytes are the footer length and a trailing magic.
//
// The footer is written only on a successful Close. A writer that dies
// mid-stream leaves a file without a footer, which Open rejects; a
// partially written destination can never verify as a valid store.
//
// The chunked layout follows the HDF5 model: fixed-size row chunks run
// through a compression filter one at a time, and the final chunk may be
// shorter than the nominal chunk size.
package store

// Current container format identifiers.
const (
	magic         = "GCLS"
	formatVersion = 1

	headerSize  = 8
	trailerSize = 12 // uint64 footer length + trailing magic
)

// DTypeFloat32 is the only element type the container currently stores.
const DTypeFloat32 = "float32"

// elementSize is the byte width of a DTypeFloat32 element.
const elementSize = 4

// fileIndex is the JSON footer.
type fileIndex struct {
	Version  int                      `json:"version"`
	Datasets map[string]*datasetIndex `json:"datasets"`
	Attrs    map[string]string        `json:"attributes,omitempty"`
}

// datasetIndex describes one dataset within the container.
type datasetIndex struct {
	// Shape is rows then columns.
	Shape [2]int `json:"shape"`
	// DType is the element type name.
	DType string `json:"dtype"`
	// Codec is the per-chunk compression algorithm.
	Codec Codec `json:"codec"`
	// ChunkRows is the nominal rows-per-chunk of the layout; the final
	// chunk may carry fewer.
	ChunkRows int `json:"chunk_rows"`
	// Chunks lists the stored chunks in row order.
	Chunks []chunkRef `json:"chunks"`
}

// chunkRef locates one stored chunk.
type chunkRef struct {
	StartRow int   `json:"start_row"`
	NumRows  int   `json:"num_rows"`
	Offset   int64 `json:"offset"`
	Size     int64 `json:"size"`
}

// rowsWritten returns how many rows of the dataset have been stored.
func (d *datasetIndex) rowsWritten() int {
	n := 0
	for _, c := range d.Chunks {
		n += c.NumRows
	}
	return n
}
