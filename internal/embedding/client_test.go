package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedEmbedder struct {
	vectors [][]float32
	errs    []error
	calls   int
}

func (s *scriptedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.vectors) {
		return s.vectors[i], nil
	}
	return s.vectors[len(s.vectors)-1], nil
}

func (s *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, s, texts)
}

func (s *scriptedEmbedder) Dimensions() int { return 3 }

func (s *scriptedEmbedder) Close() error { return nil }

func TestClient_NoProvider(t *testing.T) {
	c := NewClient(nil, 384)
	res := c.Embed(context.Background(), "hello")

	assert.True(t, res.IsDegraded())
	assert.Len(t, res.Value, 384)
	assert.True(t, IsZero(res.Value))
	assert.False(t, c.Configured())
}

func TestClient_Success(t *testing.T) {
	e := &scriptedEmbedder{vectors: [][]float32{{0.1, 0.2, 0.3}}}
	res := NewClient(e, 3).Embed(context.Background(), "hello")

	require.False(t, res.IsDegraded())
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, res.Value)
}

func TestClient_WarmingUpRetriesOnce(t *testing.T) {
	e := &scriptedEmbedder{
		vectors: [][]float32{nil, {1, 0, 0}},
		errs:    []error{fmt.Errorf("hf: %w", ErrWarmingUp)},
	}
	res := NewClient(e, 3, WithWarmupDelay(0)).Embed(context.Background(), "q")

	assert.Equal(t, 2, e.calls)
	require.False(t, res.IsDegraded())
	assert.Equal(t, []float32{1, 0, 0}, res.Value)
}

func TestClient_WarmingUpTwiceDegrades(t *testing.T) {
	e := &scriptedEmbedder{
		vectors: [][]float32{{1, 0, 0}},
		errs:    []error{ErrWarmingUp, ErrWarmingUp},
	}
	res := NewClient(e, 3, WithWarmupDelay(0)).Embed(context.Background(), "q")

	assert.Equal(t, 2, e.calls)
	assert.True(t, res.IsDegraded())
	assert.Equal(t, []float32{0, 0, 0}, res.Value)
}

func TestClient_OtherErrorNotRetried(t *testing.T) {
	e := &scriptedEmbedder{vectors: [][]float32{{1, 0, 0}}, errs: []error{errors.New("status 401")}}
	res := NewClient(e, 3, WithWarmupDelay(0)).Embed(context.Background(), "q")

	assert.Equal(t, 1, e.calls)
	assert.True(t, res.IsDegraded())
	assert.Contains(t, res.Reason, "401")
}

func TestClient_WrongDimensionDegrades(t *testing.T) {
	e := &scriptedEmbedder{vectors: [][]float32{{1, 2}}}
	res := NewClient(e, 3).Embed(context.Background(), "q")

	assert.True(t, res.IsDegraded())
	assert.Len(t, res.Value, 3)
	assert.Contains(t, res.Reason, "2 dimensions")
}

func TestClient_WarmupWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &scriptedEmbedder{vectors: [][]float32{{1, 0, 0}}, errs: []error{ErrWarmingUp}}
	res := NewClient(e, 3).Embed(ctx, "q")

	assert.Equal(t, 1, e.calls)
	assert.True(t, res.IsDegraded())
}

func TestClient_CachesOnlySuccess(t *testing.T) {
	e := &scriptedEmbedder{
		vectors: [][]float32{nil, {0, 1, 0}},
		errs:    []error{errors.New("boom")},
	}
	c := NewClient(e, 3, WithCache(8))

	first := c.Embed(context.Background(), "same")
	assert.True(t, first.IsDegraded())

	second := c.Embed(context.Background(), "same")
	require.False(t, second.IsDegraded())
	third := c.Embed(context.Background(), "same")
	assert.Equal(t, second.Value, third.Value)
	assert.Equal(t, 2, e.calls)
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(Zero(4)))
	assert.False(t, IsZero([]float32{0, 0, 1e-9}))
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder(16)
	a, err := m.Embed(context.Background(), "same text")
	require.NoError(t, err)
	b, _ := m.Embed(context.Background(), "same text")
	c, _ := m.Embed(context.Background(), "other text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)

	batch, err := m.EmbedBatch(context.Background(), []string{"same text", "other text"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{a, c}, batch)
}
