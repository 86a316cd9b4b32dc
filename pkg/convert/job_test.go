package convert

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/genoconv/pkg/resource"
	"github.com/ajitpratap0/genoconv/pkg/store"
)

func TestJobRunsStandardWithinBudget(t *testing.T) {
	src := testMatrix(t, 37, 19)
	dest := filepath.Join(t.TempDir(), "out.gcol")

	job := NewJob(src, dest, JobOptions{
		TargetGB: 2.0,
		Codec:    store.CodecZstd,
		Signal:   &resource.StaticSignal{NodeMB: 8192, HasNode: true},
		Logger:   zap.NewNop(),
	})
	require.Equal(t, StatePlanned, job.State())

	require.NoError(t, job.Run())

	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, ModeStandard, job.Mode())
	assert.Nil(t, job.Plan())
	assert.True(t, Verify(dest).Valid)
}

func TestJobChunksWhenForced(t *testing.T) {
	src := testMatrix(t, 37, 19)
	dest := filepath.Join(t.TempDir(), "out.gcol")

	job := NewJob(src, dest, JobOptions{
		TargetGB:       2.0,
		ExplicitMode:   ModeChunked,
		FixedChunkSize: 5,
		Codec:          store.CodecZstd,
		Signal:         &resource.StaticSignal{NodeMB: 8192, HasNode: true},
		Logger:         zap.NewNop(),
	})

	require.NoError(t, job.Run())

	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, ModeChunked, job.Mode())
	require.NotNil(t, job.Plan())
	assert.Equal(t, 5, job.Plan().ChunkSize)
	assert.Equal(t, 8, job.Plan().NumChunks)
	assert.True(t, Verify(dest).Valid)
}

func TestJobFailureIsTerminal(t *testing.T) {
	src := &failingSource{MemorySource: testMatrix(t, 10, 4), failAtRow: 0}
	dest := filepath.Join(t.TempDir(), "out.gcol")

	job := NewJob(src, dest, JobOptions{
		ExplicitMode: ModeChunked,
		TargetGB:     2.0,
		Signal:       &resource.StaticSignal{NodeMB: 1024, HasNode: true},
		Logger:       zap.NewNop(),
	})

	require.Error(t, job.Run())
	assert.Equal(t, StateFailed, job.State())
	assert.False(t, Verify(dest).Valid)

	// A failed job cannot be re-run; retrying takes a fresh job.
	err := job.Run()
	require.Error(t, err)
	assert.Equal(t, StateFailed, job.State())
}

func TestJobCannotRunTwice(t *testing.T) {
	src := testMatrix(t, 4, 3)
	dest := filepath.Join(t.TempDir(), "out.gcol")

	job := NewJob(src, dest, JobOptions{
		Signal: &resource.StaticSignal{NodeMB: 8192, HasNode: true},
		Logger: zap.NewNop(),
	})
	require.NoError(t, job.Run())
	require.Equal(t, StateCompleted, job.State())

	assert.Error(t, job.Run())
}

func TestJobIndeterminateBudgetSmallMatrixUsesStandard(t *testing.T) {
	src := testMatrix(t, 37, 19)
	dest := filepath.Join(t.TempDir(), "out.gcol")

	job := NewJob(src, dest, JobOptions{
		TargetGB: 2.0,
		Signal:   &resource.StaticSignal{OSErr: assert.AnError},
		Logger:   zap.NewNop(),
	})

	require.NoError(t, job.Run())
	assert.Equal(t, ModeStandard, job.Mode())
}
