package convert

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
	"github.com/ajitpratap0/genoconv/pkg/matrix"
	"github.com/ajitpratap0/genoconv/pkg/metrics"
	"github.com/ajitpratap0/genoconv/pkg/observability"
	"github.com/ajitpratap0/genoconv/pkg/resource"
	"github.com/ajitpratap0/genoconv/pkg/store"
)

// State is a job's position in its lifecycle:
// Planned -> BudgetProbed -> ModeSelected -> Writing -> Completed|Failed.
type State string

const (
	StatePlanned      State = "planned"
	StateBudgetProbed State = "budget_probed"
	StateModeSelected State = "mode_selected"
	StateWriting      State = "writing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// JobOptions configures a conversion job.
type JobOptions struct {
	// TargetGB is the memory target for chunk sizing.
	TargetGB float64
	// ExplicitMode forces a processing mode; empty selects by budget.
	ExplicitMode Mode
	// FixedChunkSize fixes the rows per chunk; 0 computes it from the
	// memory target.
	FixedChunkSize int
	// Codec selects the store compression.
	Codec store.Codec
	// Signal supplies memory figures; nil uses the environment signal.
	Signal resource.Signal
	// Logger, when nil, falls back to the process logger.
	Logger *zap.Logger
}

// Job converts one matrix source into one destination store. A job runs
// exactly once: Failed is terminal and retrying requires a fresh job. The
// pipeline is sequential with no internal cancellation; callers that need
// a timeout wrap the whole Run call.
type Job struct {
	source      matrix.Source
	destination string
	opts        JobOptions
	logger      *zap.Logger

	state  State
	budget resource.Budget
	mode   Mode
	plan   *ChunkPlan
}

// NewJob creates a job in the Planned state.
func NewJob(source matrix.Source, destination string, opts JobOptions) *Job {
	if opts.TargetGB <= 0 {
		opts.TargetGB = 2.0
	}
	if opts.Signal == nil {
		opts.Signal = resource.NewEnvSignal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewComponentLogger("job")
	}
	return &Job{
		source:      source,
		destination: destination,
		opts:        opts,
		logger:      logger.With(zap.String("destination", destination)),
		state:       StatePlanned,
	}
}

// State returns the job's current state.
func (j *Job) State() State { return j.state }

// Mode returns the selected processing mode, empty before selection.
func (j *Job) Mode() Mode { return j.mode }

// Plan returns the chunk plan, nil before planning or in standard mode.
func (j *Job) Plan() *ChunkPlan { return j.plan }

// Run executes the pipeline: probe budget, select mode, plan chunks when
// chunking, write. Any failure moves the job to Failed, which is
// terminal; the destination must then be treated as invalid.
func (j *Job) Run() error {
	if j.state != StatePlanned {
		return genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"job already ran (state %q), create a fresh job to retry", j.state)
	}

	nSamples, nVariants := j.source.NSamples(), j.source.NVariants()

	j.budget = resource.Probe(j.opts.Signal, j.logger)
	j.state = StateBudgetProbed

	mode, adjustedTargetGB := Select(nSamples, nVariants, j.budget, j.opts.TargetGB, j.opts.ExplicitMode)
	j.mode = mode
	j.state = StateModeSelected
	j.logger.Info("processing mode selected",
		zap.String("mode", string(mode)),
		zap.Float64("required_gb", RequiredGB(nSamples, nVariants)),
		zap.Float64("safe_gb", j.budget.SafeGB()),
		zap.String("budget_source", string(j.budget.Source)),
		zap.Float64("target_gb", adjustedTargetGB),
	)

	if mode == ModeChunked {
		plan, err := j.buildPlan(nSamples, nVariants, adjustedTargetGB)
		if err != nil {
			j.state = StateFailed
			return err
		}
		j.plan = &plan
		j.logger.Info("chunk plan computed",
			zap.Int("chunk_size", plan.ChunkSize),
			zap.Int("num_chunks", plan.NumChunks),
			zap.Float64("chunk_gb", float64(plan.ChunkBytes(nVariants))/bytesPerGB),
		)
	}

	j.state = StateWriting
	metrics.ConversionsStarted.WithLabelValues(string(mode)).Inc()

	writer := NewWriter(j.logger, j.opts.Codec)
	if err := writer.Write(j.source, j.destination, mode, j.plan); err != nil {
		j.state = StateFailed
		metrics.ConversionsCompleted.WithLabelValues(string(mode), "failure").Inc()
		return err
	}

	j.state = StateCompleted
	metrics.ConversionsCompleted.WithLabelValues(string(mode), "success").Inc()
	return nil
}

func (j *Job) buildPlan(nSamples, nVariants int, targetGB float64) (ChunkPlan, error) {
	if j.opts.FixedChunkSize > 0 {
		return PlanFixed(nSamples, j.opts.FixedChunkSize)
	}
	return Plan(nSamples, nVariants, targetGB)
}
