package genoerrors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndNewf(t *testing.T) {
	err := New(ErrorTypeConfig, "bad config")
	assert.Equal(t, "config: bad config", err.Error())
	assert.NotEmpty(t, err.Stack)

	err = Newf(ErrorTypeChunk, "chunk size %d too small", 0)
	assert.Equal(t, "chunk: chunk size 0 too small", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := os.ErrNotExist
	err := Wrap(cause, ErrorTypeFile, "failed to open fileset")

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "failed to open fileset")
	assert.True(t, IsType(err, ErrorTypeFile))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestWrapKeepsOriginalStack(t *testing.T) {
	inner := New(ErrorTypeWrite, "disk full")
	outer := Wrap(inner, ErrorTypeWrite, "chunk write failed")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.ErrorIs(t, outer, inner)
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := New(ErrorTypeVerification, "missing dataset")
	wrapped := fmt.Errorf("conversion failed: %w", err)

	assert.True(t, IsType(wrapped, ErrorTypeVerification))
	assert.False(t, IsType(wrapped, ErrorTypeWrite))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeVerification))
	assert.False(t, IsType(nil, ErrorTypeVerification))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeData, "bad row").
		WithDetail("row", 17).
		WithDetail("path", "/data/cohort.bed")

	require.NotNil(t, err.Details)
	assert.Equal(t, 17, err.Details["row"])
	assert.Equal(t, "/data/cohort.bed", err.Details["path"])
}
