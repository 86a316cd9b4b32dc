package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProbeNodeAllocation(t *testing.T) {
	sig := &StaticSignal{NodeMB: 8192, HasNode: true}

	budget := Probe(sig, zap.NewNop())

	require.True(t, budget.Determinate())
	assert.Equal(t, SourceCluster, budget.Source)
	assert.InDelta(t, 8.0, budget.AvailableGB, 1e-9)
}

func TestProbePerUnitAllocation(t *testing.T) {
	sig := &StaticSignal{UnitMB: 2048, Units: 4, HasUnit: true}

	budget := Probe(sig, zap.NewNop())

	require.True(t, budget.Determinate())
	assert.Equal(t, SourceCluster, budget.Source)
	assert.InDelta(t, 8.0, budget.AvailableGB, 1e-9)
}

func TestProbeNodeAllocationTakesPrecedence(t *testing.T) {
	sig := &StaticSignal{
		NodeMB:  4096,
		HasNode: true,
		UnitMB:  2048,
		Units:   4,
		HasUnit: true,
		OSBytes: 64 << 30,
	}

	budget := Probe(sig, zap.NewNop())

	assert.Equal(t, SourceCluster, budget.Source)
	assert.InDelta(t, 4.0, budget.AvailableGB, 1e-9)
}

func TestProbeOSFallback(t *testing.T) {
	sig := &StaticSignal{OSBytes: 16 << 30}

	budget := Probe(sig, zap.NewNop())

	require.True(t, budget.Determinate())
	assert.Equal(t, SourceOS, budget.Source)
	assert.InDelta(t, 16.0, budget.AvailableGB, 1e-9)
}

func TestProbeIndeterminate(t *testing.T) {
	sig := &StaticSignal{OSErr: errors.New("no memory stats")}

	budget := Probe(sig, zap.NewNop())

	assert.False(t, budget.Determinate())
	assert.Equal(t, SourceIndeterminate, budget.Source)
	assert.Zero(t, budget.SafeGB())
}

func TestProbeJobContextDiagnosticsDoNotChangeResult(t *testing.T) {
	sig := &StaticSignal{
		JobContext:   true,
		SchedulerVar: map[string]string{"SLURM_JOB_ID": "1234", "SLURM_NTASKS": "2"},
		OSBytes:      8 << 30,
	}

	budget := Probe(sig, zap.NewNop())

	assert.Equal(t, SourceOS, budget.Source)
	assert.InDelta(t, 8.0, budget.AvailableGB, 1e-9)
}

func TestSafeGBAppliesSafetyFactor(t *testing.T) {
	budget := Budget{AvailableGB: 10.0, Source: SourceCluster}
	assert.InDelta(t, 7.0, budget.SafeGB(), 1e-9)
}

func TestEnvSignalParsesVariables(t *testing.T) {
	t.Setenv("SLURM_MEM_PER_NODE", "8192")
	t.Setenv("SLURM_MEM_PER_CPU", "2048")
	t.Setenv("SLURM_CPUS_PER_TASK", "4")
	t.Setenv("SLURM_JOB_ID", "42")

	sig := NewEnvSignal()

	mb, ok := sig.NodeAllocationMB()
	require.True(t, ok)
	assert.Equal(t, int64(8192), mb)

	unitMB, units, ok := sig.PerUnitAllocationMB()
	require.True(t, ok)
	assert.Equal(t, int64(2048), unitMB)
	assert.Equal(t, 4, units)

	assert.True(t, sig.InJobContext())
	assert.Equal(t, "42", sig.SchedulerEnv()["SLURM_JOB_ID"])
}

func TestEnvSignalRejectsUnparsableValues(t *testing.T) {
	t.Setenv("SLURM_MEM_PER_NODE", "not-a-number")
	t.Setenv("SLURM_MEM_PER_CPU", "2048")
	t.Setenv("SLURM_CPUS_PER_TASK", "four")

	sig := NewEnvSignal()

	_, ok := sig.NodeAllocationMB()
	assert.False(t, ok)

	_, _, ok = sig.PerUnitAllocationMB()
	assert.False(t, ok)
}
