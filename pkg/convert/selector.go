package convert

import (
	"github.com/ajitpratap0/genoconv/pkg/matrix"
	"github.com/ajitpratap0/genoconv/pkg/resource"
)

// Mode is the processing strategy for one conversion.
type Mode string

const (
	// ModeStandard materializes the whole matrix and writes it in one
	// operation.
	ModeStandard Mode = "standard"
	// ModeChunked streams the matrix in row chunks bounded by the
	// memory target.
	ModeChunked Mode = "chunked"
)

// indeterminateThresholdGB is the conservative cutoff when no memory
// budget could be determined: datasets above it are chunked. This
// deliberately treats "cannot determine memory" like "known large
// dataset"; it is a documented heuristic, not a measurement.
const indeterminateThresholdGB = 1.0

// chunkTargetFraction is applied to available memory when chunking is
// chosen: the chunk target gets half the budget, leaving headroom for the
// writer's own buffers and the rest of the process.
const chunkTargetFraction = 0.5

// RequiredGB returns the memory needed to materialize the whole matrix.
func RequiredGB(nSamples, nVariants int) float64 {
	return float64(nSamples) * float64(nVariants) * matrix.BytesPerElement / bytesPerGB
}

// Select decides the processing mode and the memory target the chunk
// planner should use. An explicit mode is returned unchanged with no
// target adjustment. Otherwise the full-matrix memory requirement is
// compared against the safe budget (or the indeterminate-budget
// threshold), and when chunking is chosen against a determinate positive
// budget the target is reduced to at most half the available memory.
//
// Select is pure: callers must pass the returned target to Plan rather
// than reusing their original target.
func Select(nSamples, nVariants int, budget resource.Budget, targetGB float64, explicit Mode) (Mode, float64) {
	if explicit != "" {
		return explicit, targetGB
	}

	requiredGB := RequiredGB(nSamples, nVariants)

	var mode Mode
	if !budget.Determinate() {
		if requiredGB > indeterminateThresholdGB {
			mode = ModeChunked
		} else {
			mode = ModeStandard
		}
		return mode, targetGB
	}

	if requiredGB > budget.SafeGB() {
		mode = ModeChunked
	} else {
		mode = ModeStandard
	}

	adjusted := targetGB
	if mode == ModeChunked && budget.AvailableGB > 0 {
		if half := budget.AvailableGB * chunkTargetFraction; half < adjusted {
			adjusted = half
		}
	}
	return mode, adjusted
}
