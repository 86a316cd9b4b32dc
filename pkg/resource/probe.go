package resource

import (
	"go.uber.org/zap"
)

// SafetyFactor is the fraction of detected available memory a job may
// actually plan against.
const SafetyFactor = 0.7

const bytesPerGB = 1 << 30

// BudgetSource identifies where a memory budget came from.
type BudgetSource string

const (
	// SourceCluster means a scheduler allocation produced the budget.
	SourceCluster BudgetSource = "cluster_allocation"
	// SourceOS means OS memory introspection produced the budget.
	SourceOS BudgetSource = "os"
	// SourceIndeterminate means no usable signal was found.
	SourceIndeterminate BudgetSource = "indeterminate"
)

// Budget is a probed memory budget. AvailableGB is meaningful only when
// the source is determinate.
type Budget struct {
	AvailableGB float64
	Source      BudgetSource
}

// Determinate reports whether a usable budget was found.
func (b Budget) Determinate() bool {
	return b.Source != SourceIndeterminate
}

// SafeGB returns the available memory after applying the safety factor,
// or 0 for an indeterminate budget.
func (b Budget) SafeGB() float64 {
	if !b.Determinate() {
		return 0
	}
	return b.AvailableGB * SafetyFactor
}

// Probe determines the memory budget from sig, first match wins:
// whole-node allocation, per-unit allocation times unit count, OS
// available memory, indeterminate. When a job context is detected but no
// scheduler allocation parses, the raw scheduler variables are logged for
// diagnosis; this never changes the returned budget.
func Probe(sig Signal, logger *zap.Logger) Budget {
	if logger == nil {
		logger = zap.NewNop()
	}

	if mb, ok := sig.NodeAllocationMB(); ok {
		gb := float64(mb) / 1024.0
		logger.Info("memory budget from node allocation",
			zap.Int64("allocation_mb", mb),
			zap.Float64("available_gb", gb),
		)
		return Budget{AvailableGB: gb, Source: SourceCluster}
	}

	if mb, units, ok := sig.PerUnitAllocationMB(); ok {
		totalMB := mb * int64(units)
		gb := float64(totalMB) / 1024.0
		logger.Info("memory budget from per-unit allocation",
			zap.Int64("mb_per_unit", mb),
			zap.Int("units", units),
			zap.Int64("total_mb", totalMB),
			zap.Float64("available_gb", gb),
		)
		return Budget{AvailableGB: gb, Source: SourceCluster}
	}

	if sig.InJobContext() {
		logger.Warn("job context detected but no memory allocation could be determined")
		env := sig.SchedulerEnv()
		for _, key := range sortedKeys(env) {
			logger.Warn("unparsed scheduler variable",
				zap.String("name", key),
				zap.String("value", env[key]),
			)
		}
	}

	bytes, err := sig.OSAvailableBytes()
	if err == nil {
		gb := float64(bytes) / bytesPerGB
		logger.Info("memory budget from OS",
			zap.Uint64("available_bytes", bytes),
			zap.Float64("available_gb", gb),
		)
		return Budget{AvailableGB: gb, Source: SourceOS}
	}
	logger.Warn("could not determine OS memory", zap.Error(err))

	logger.Warn("memory budget indeterminate, conservative chunking heuristic will apply")
	return Budget{Source: SourceIndeterminate}
}
