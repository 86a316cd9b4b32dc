// Package matrix provides genotype matrix sources. A Source exposes the
// matrix dimensions and the ability to materialize any contiguous row
// range without loading the rest of the matrix; that row-range contract
// is what lets the converter bound its transient memory.
package matrix

import (
	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

// BytesPerElement is the fixed width of one genotype value (float32).
const BytesPerElement = 4

// Source is a dense samples-by-variants genotype matrix that can
// materialize contiguous row ranges on demand.
type Source interface {
	// NSamples returns the number of rows.
	NSamples() int

	// NVariants returns the number of columns.
	NVariants() int

	// ReadRows materializes rows [start, end) in row-major order as a
	// flat slice of length (end-start)*NVariants(). Implementations
	// must fetch only the requested range.
	ReadRows(start, end int) ([]float32, error)
}

// checkRange validates a [start, end) row range against nSamples.
func checkRange(start, end, nSamples int) error {
	if start < 0 || end > nSamples || start >= end {
		return genoerrors.Newf(genoerrors.ErrorTypeData,
			"invalid row range [%d, %d) for %d samples", start, end, nSamples)
	}
	return nil
}

// MemorySource is a Source backed by an in-memory row-major slice.
type MemorySource struct {
	nSamples  int
	nVariants int
	data      []float32
}

// NewMemorySource wraps a flat row-major slice as a Source. The slice
// length must equal nSamples*nVariants.
func NewMemorySource(nSamples, nVariants int, data []float32) (*MemorySource, error) {
	if nSamples <= 0 || nVariants <= 0 {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"invalid dimensions %dx%d", nSamples, nVariants)
	}
	if len(data) != nSamples*nVariants {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeData,
			"data length %d does not match %dx%d matrix", len(data), nSamples, nVariants)
	}
	return &MemorySource{nSamples: nSamples, nVariants: nVariants, data: data}, nil
}

// NSamples returns the number of rows.
func (s *MemorySource) NSamples() int { return s.nSamples }

// NVariants returns the number of columns.
func (s *MemorySource) NVariants() int { return s.nVariants }

// ReadRows returns a copy of rows [start, end).
func (s *MemorySource) ReadRows(start, end int) ([]float32, error) {
	if err := checkRange(start, end, s.nSamples); err != nil {
		return nil, err
	}
	out := make([]float32, (end-start)*s.nVariants)
	copy(out, s.data[start*s.nVariants:end*s.nVariants])
	return out, nil
}

// WholeMatrixReader is a reader that can only materialize the full matrix
// at once.
type WholeMatrixReader interface {
	NSamples() int
	NVariants() int
	ReadAll() ([]float32, error)
}

// WholeMatrixAdapter adapts a WholeMatrixReader to the Source contract by
// slicing out of a full materialization. Every ReadRows call loads the
// whole matrix, so the memory bound the chunk planner computes does not
// hold for sources wrapped this way. Use only when the underlying format
// genuinely cannot stream.
type WholeMatrixAdapter struct {
	reader WholeMatrixReader
}

// NewWholeMatrixAdapter wraps reader.
func NewWholeMatrixAdapter(reader WholeMatrixReader) *WholeMatrixAdapter {
	return &WholeMatrixAdapter{reader: reader}
}

// NSamples returns the number of rows.
func (a *WholeMatrixAdapter) NSamples() int { return a.reader.NSamples() }

// NVariants returns the number of columns.
func (a *WholeMatrixAdapter) NVariants() int { return a.reader.NVariants() }

// ReadRows materializes the whole matrix and copies out rows [start, end).
func (a *WholeMatrixAdapter) ReadRows(start, end int) ([]float32, error) {
	if err := checkRange(start, end, a.reader.NSamples()); err != nil {
		return nil, err
	}
	full, err := a.reader.ReadAll()
	if err != nil {
		return nil, err
	}
	nVariants := a.reader.NVariants()
	out := make([]float32, (end-start)*nVariants)
	copy(out, full[start*nVariants:end*nVariants])
	return out, nil
}
