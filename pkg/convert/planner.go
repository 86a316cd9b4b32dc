// Package convert implements the memory-aware conversion pipeline: a
// chunk planner that bounds transient memory, a mode selector that picks
// single-shot or streaming processing from a probed budget, the streaming
// writer itself, a structural verifier, and the per-file job state
// machine tying them together.
package convert

import (
	"math"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
	"github.com/ajitpratap0/genoconv/pkg/matrix"
)

const (
	bytesPerGB = float64(1 << 30)

	// largeVariantThreshold is the variant count above which the hard
	// chunk-memory ceiling applies regardless of the caller's target.
	largeVariantThreshold = 500_000

	// largeChunkCapBytes is that ceiling: 10 GiB per materialized chunk.
	largeChunkCapBytes = float64(10) * bytesPerGB
)

// ChunkPlan is the row-chunk layout for one conversion: ChunkSize rows
// per chunk, NumChunks chunks covering the matrix.
type ChunkPlan struct {
	ChunkSize int
	NumChunks int
}

// ChunkBytes returns the memory one full chunk materializes.
func (p ChunkPlan) ChunkBytes(nVariants int) int64 {
	return int64(p.ChunkSize) * int64(nVariants) * matrix.BytesPerElement
}

// Plan computes a chunk plan such that one chunk of nVariants-wide rows
// stays within targetGB, clamped to [1, nSamples] rows. Above
// largeVariantThreshold variants the 10 GiB ceiling also applies, bounding
// chunk memory even when the caller passes an oversized target.
func Plan(nSamples, nVariants int, targetGB float64) (ChunkPlan, error) {
	if nVariants <= 0 {
		return ChunkPlan{}, genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"n_variants must be positive, got %d", nVariants)
	}
	if nSamples <= 0 {
		return ChunkPlan{}, genoerrors.Newf(genoerrors.ErrorTypeChunk,
			"cannot plan chunks for a zero-row matrix (%d samples)", nSamples)
	}

	bytesPerRow := float64(nVariants) * matrix.BytesPerElement

	chunkSize := rowsWithin(targetGB*bytesPerGB, bytesPerRow)
	if chunkSize > nSamples {
		chunkSize = nSamples
	}

	if nVariants > largeVariantThreshold {
		capped := rowsWithin(largeChunkCapBytes, bytesPerRow)
		if capped < chunkSize {
			chunkSize = capped
		}
		if chunkSize > nSamples {
			chunkSize = nSamples
		}
	}

	return ChunkPlan{
		ChunkSize: chunkSize,
		NumChunks: (nSamples + chunkSize - 1) / chunkSize,
	}, nil
}

// PlanFixed builds a plan from an explicitly requested chunk size,
// clamped to the sample count.
func PlanFixed(nSamples, chunkSize int) (ChunkPlan, error) {
	if nSamples <= 0 {
		return ChunkPlan{}, genoerrors.Newf(genoerrors.ErrorTypeChunk,
			"cannot plan chunks for a zero-row matrix (%d samples)", nSamples)
	}
	if chunkSize <= 0 {
		return ChunkPlan{}, genoerrors.Newf(genoerrors.ErrorTypeChunk,
			"chunk size must be positive, got %d", chunkSize)
	}
	if chunkSize > nSamples {
		chunkSize = nSamples
	}
	return ChunkPlan{
		ChunkSize: chunkSize,
		NumChunks: (nSamples + chunkSize - 1) / chunkSize,
	}, nil
}

// rowsWithin returns how many bytesPerRow-sized rows fit in budgetBytes,
// floored to at least one row.
func rowsWithin(budgetBytes, bytesPerRow float64) int {
	rows := int(math.Floor(budgetBytes / bytesPerRow))
	if rows < 1 {
		return 1
	}
	return rows
}
