package convert

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
	"github.com/ajitpratap0/genoconv/pkg/matrix"
	"github.com/ajitpratap0/genoconv/pkg/metrics"
	"github.com/ajitpratap0/genoconv/pkg/observability"
	"github.com/ajitpratap0/genoconv/pkg/store"
)

// DatasetGenotypes is the dataset key holding the genotype matrix.
const DatasetGenotypes = "genotype_data"

// Writer executes a conversion in the selected mode. Standard and chunked
// output are logically identical for the same source content; the only
// difference is how much of the matrix is materialized at once.
type Writer struct {
	logger *zap.Logger
	codec  store.Codec
}

// NewWriter creates a writer using the given store codec. A nil logger
// falls back to the process logger.
func NewWriter(logger *zap.Logger, codec store.Codec) *Writer {
	if logger == nil {
		logger = observability.NewComponentLogger("writer")
	}
	if codec == "" {
		codec = store.CodecZstd
	}
	return &Writer{logger: logger, codec: codec}
}

// Write converts src into a store at destination. ModeChunked requires a
// plan. Any read or write error aborts the whole job and leaves the
// destination invalid; no cleanup of the partial file is attempted.
func (w *Writer) Write(src matrix.Source, destination string, mode Mode, plan *ChunkPlan) error {
	switch mode {
	case ModeStandard:
		return w.writeStandard(src, destination)
	case ModeChunked:
		if plan == nil {
			return genoerrors.New(genoerrors.ErrorTypeChunk, "chunked mode requires a chunk plan")
		}
		return w.writeChunked(src, destination, *plan)
	default:
		return genoerrors.Newf(genoerrors.ErrorTypeConfig, "unknown mode %q", mode)
	}
}

func (w *Writer) writeStandard(src matrix.Source, destination string) error {
	nSamples, nVariants := src.NSamples(), src.NVariants()
	op := observability.NewOperationLogger(w.logger, "write_standard")
	op.LogStart("writing matrix in one operation",
		zap.String("destination", destination),
		zap.Int("n_samples", nSamples),
		zap.Int("n_variants", nVariants),
	)

	data, err := src.ReadRows(0, nSamples)
	if err != nil {
		wrapped := genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to read matrix")
		op.LogError("read failed", wrapped)
		return wrapped
	}

	sw, err := store.Create(destination)
	if err != nil {
		op.LogError("store create failed", err)
		return err
	}

	if err := w.writeAll(sw, src, nSamples, nVariants, 0, [][2]int{{0, nSamples}}, data); err != nil {
		_ = sw.Abort()
		op.LogError("write failed", err)
		return err
	}

	if err := sw.Close(); err != nil {
		op.LogError("store finalize failed", err)
		return err
	}
	op.LogComplete("matrix written",
		zap.Int("n_samples", nSamples),
		zap.Int("n_variants", nVariants),
	)
	return nil
}

func (w *Writer) writeChunked(src matrix.Source, destination string, plan ChunkPlan) error {
	nSamples, nVariants := src.NSamples(), src.NVariants()
	op := observability.NewOperationLogger(w.logger, "write_chunked")
	op.LogStart("writing matrix in chunks",
		zap.String("destination", destination),
		zap.Int("n_samples", nSamples),
		zap.Int("n_variants", nVariants),
		zap.Int("chunk_size", plan.ChunkSize),
		zap.Int("num_chunks", plan.NumChunks),
	)

	sw, err := store.Create(destination)
	if err != nil {
		op.LogError("store create failed", err)
		return err
	}

	// The dataset is declared with its final shape and layout before any
	// data is written.
	ranges := make([][2]int, 0, plan.NumChunks)
	for i := 0; i < plan.NumChunks; i++ {
		start := i * plan.ChunkSize
		end := start + plan.ChunkSize
		if end > nSamples {
			end = nSamples
		}
		ranges = append(ranges, [2]int{start, end})
	}

	if err := w.writeAll(sw, src, nSamples, nVariants, plan.ChunkSize, ranges, nil); err != nil {
		_ = sw.Abort()
		op.LogError("write failed", err)
		return err
	}

	if err := sw.Close(); err != nil {
		op.LogError("store finalize failed", err)
		return err
	}
	op.LogComplete("matrix written",
		zap.Int("num_chunks", plan.NumChunks),
	)
	return nil
}

// writeAll creates the genotype dataset and writes the given row ranges
// in order. preread, when non-nil, is the already-materialized data for a
// single full-matrix range.
func (w *Writer) writeAll(sw *store.Writer, src matrix.Source, nSamples, nVariants, chunkRows int, ranges [][2]int, preread []float32) error {
	if err := sw.CreateDataset(DatasetGenotypes, nSamples, nVariants, store.DatasetOptions{
		Codec:     w.codec,
		ChunkRows: chunkRows,
	}); err != nil {
		return err
	}
	sw.SetAttr("n_samples", strconv.Itoa(nSamples))
	sw.SetAttr("n_variants", strconv.Itoa(nVariants))

	for i, rng := range ranges {
		start, end := rng[0], rng[1]
		timer := metrics.NewTimer()

		data := preread
		if data == nil {
			chunk, err := src.ReadRows(start, end)
			if err != nil {
				return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to read chunk").
					WithDetail("chunk", i).
					WithDetail("start_row", start).
					WithDetail("end_row", end)
			}
			data = chunk
		}

		if err := sw.WriteRows(DatasetGenotypes, start, data); err != nil {
			return genoerrors.Wrap(err, genoerrors.ErrorTypeWrite, "failed to write chunk").
				WithDetail("chunk", i).
				WithDetail("start_row", start).
				WithDetail("end_row", end)
		}
		preread = nil

		duration := timer.ObserveChunkWrite()
		metrics.ChunksWritten.Inc()
		metrics.RowsWritten.Add(float64(end - start))
		metrics.BytesWritten.Add(float64((end - start) * nVariants * matrix.BytesPerElement))

		if len(ranges) > 1 {
			w.logger.Info("chunk written",
				zap.Int("chunk", i),
				zap.Int("start_row", start),
				zap.Int("end_row", end),
				zap.Duration("duration", duration),
			)
		}
	}
	return nil
}
