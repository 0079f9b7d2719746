package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()

	a, err := m.EmbedText(context.Background(), "same text")
	require.NoError(t, err)
	b, err := m.EmbedText(context.Background(), "same text")
	require.NoError(t, err)
	c, err := m.EmbedText(context.Background(), "other text")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimension)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, []string{"same text", "same text", "other text"}, m.Texts())
}

func TestMockEmbedder_CustomFunc(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	})

	_, err := m.EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	_, err = m.EmbedText(context.Background(), "x")
	assert.NoError(t, err)
}

func TestMockEmbedder_Concurrent(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
