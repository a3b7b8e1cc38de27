package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/gateway"
)

// recordingGateway echoes a tagged version of every chunk it is asked to summarize.
type recordingGateway struct {
	mu     sync.Mutex
	calls  [][]string
	failOn int
}

func (g *recordingGateway) Backend() config.Backend { return config.BackendHosted }

func (g *recordingGateway) Embed(context.Context, string) ([]float32, error) { return nil, nil }

func (g *recordingGateway) Summarize(_ context.Context, chunks []string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, chunks)
	if g.failOn > 0 && len(g.calls) == g.failOn {
		return "", gateway.ErrProvider
	}
	return " <" + strings.Fields(chunks[0])[0] + "> ", nil
}

func (g *recordingGateway) Answer(context.Context, string, string) (string, error) {
	return "", gateway.ErrUnsupported
}

func TestSummarize_Blank(t *testing.T) {
	gw := &recordingGateway{}
	s := New(gw, 4, 1, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		out, err := s.Summarize(context.Background(), text)
		require.NoError(t, err)
		assert.Empty(t, out)
	}
	assert.Empty(t, gw.calls)
}

func TestSummarize_OneCallPerWindowInOrder(t *testing.T) {
	gw := &recordingGateway{}
	s := New(gw, 4, 1, nil)

	out, err := s.Summarize(context.Background(), "a b c d e f g h i j")
	require.NoError(t, err)

	assert.Equal(t, "<a> <d> <g>", out)
	require.Len(t, gw.calls, 3)
	assert.Equal(t, []string{"a b c d"}, gw.calls[0])
	assert.Equal(t, []string{"d e f g"}, gw.calls[1])
	assert.Equal(t, []string{"g h i j"}, gw.calls[2])
}

func TestSummarize_ShortTextSingleCall(t *testing.T) {
	gw := &recordingGateway{}
	s := New(gw, 500, 50, nil)

	out, err := s.Summarize(context.Background(), "Only a few words here.")
	require.NoError(t, err)
	assert.Equal(t, "<Only>", out)
	assert.Len(t, gw.calls, 1)
}

func TestSummarize_PropagatesProviderError(t *testing.T) {
	gw := &recordingGateway{failOn: 2}
	s := New(gw, 2, 0, nil)

	_, err := s.Summarize(context.Background(), "a b c d e f")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrProvider))
	assert.Len(t, gw.calls, 2, "stops at the first failure")
}

func TestSummarize_LocalGateway(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendLocal
	gw, err := gateway.New(cfg, nil)
	require.NoError(t, err)

	s := New(gw, cfg.ChunkSize, cfg.ChunkOverlap, nil)
	out, err := s.Summarize(context.Background(), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", out)
}
