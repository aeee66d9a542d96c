package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cosfs/pkg/store/memory"
)

func TestRecordingClientCountsAndFails(t *testing.T) {
	ctx := context.Background()
	rec := NewRecordingClient(memory.New("b"))
	boom := errors.New("boom")

	rec.FailOn(OpPut, 2, boom)

	require.NoError(t, rec.Put(ctx, "b", "k1", []byte("x")))
	assert.ErrorIs(t, rec.Put(ctx, "b", "k2", []byte("y")), boom)
	require.NoError(t, rec.Put(ctx, "b", "k3", []byte("z")))

	assert.Equal(t, 3, rec.Count(OpPut))
	assert.Equal(t, []string{OpPut, OpPut, OpPut}, rec.Calls())

	exists, err := rec.Exists(ctx, "b", "k2")
	require.NoError(t, err)
	assert.False(t, exists, "failed put must not reach the store")
}

func TestRecordingClientFailAlways(t *testing.T) {
	ctx := context.Background()
	rec := NewRecordingClient(memory.New("b"))
	boom := errors.New("denied")
	rec.FailAlways(OpDeleteBatch, boom)

	for i := 0; i < 3; i++ {
		_, err := rec.DeleteBatch(ctx, "b", []string{"a"})
		assert.ErrorIs(t, err, boom)
	}
	assert.Len(t, rec.DeleteBatches(), 3)

	rec.ClearFailures()
	_, err := rec.DeleteBatch(ctx, "b", []string{"a"})
	assert.NoError(t, err)
}

func TestRecordingClientForwardsEndpoint(t *testing.T) {
	inner := memory.New()
	rec := NewRecordingClient(inner)

	rec.SetEndpoint("https://cos.example.com")
	assert.Equal(t, "https://cos.example.com", inner.Endpoint())
	assert.Equal(t, "https://cos.example.com", rec.Endpoint())
}
