package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/workpool"
)

func localConfig() *config.Config {
	cfg := config.Default()
	cfg.Backend = config.BackendLocal
	return cfg
}

func TestNew_SelectsVariant(t *testing.T) {
	gw, err := New(localConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.BackendLocal, gw.Backend())

	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	gw, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, config.BackendHosted, gw.Backend())

	cfg.Backend = "mystery"
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestNewLocal_UnknownModel(t *testing.T) {
	cfg := localConfig()
	cfg.Local.EmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	_, err := NewLocal(cfg, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)

	cfg = localConfig()
	cfg.Local.SummarizationModel = "facebook/bart-large-cnn"
	_, err = NewLocal(cfg, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestLocal_Embed(t *testing.T) {
	gw, err := NewLocal(localConfig(), nil)
	require.NoError(t, err)

	vec, err := gw.Embed(context.Background(), "The quick brown fox")
	require.NoError(t, err)
	assert.Len(t, vec, 384)

	empty, err := gw.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLocal_SummarizeJoinsChunks(t *testing.T) {
	gw, err := NewLocal(localConfig(), nil)
	require.NoError(t, err)

	out, err := gw.Summarize(context.Background(), []string{"Alpha is first.", "Beta is second."})
	require.NoError(t, err)
	assert.Equal(t, "Alpha is first. Beta is second.", out)
}

func TestLocal_AnswerUnsupported(t *testing.T) {
	gw, err := NewLocal(localConfig(), nil)
	require.NoError(t, err)

	_, err = gw.Answer(context.Background(), "q", "c")
	assert.ErrorIs(t, err, ErrUnsupported)
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }
func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model crashed")
}

func TestLocal_EmbedFailureWrapped(t *testing.T) {
	gw := NewLocalWith(failingEmbedder{}, nil, 0, 0, nil)
	_, err := gw.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "model crashed")
}

// slowGateway blocks Embed until release is closed.
type slowGateway struct {
	Local
	release  chan struct{}
	finished atomic.Bool
}

func (s *slowGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	<-s.release
	s.finished.Store(true)
	return []float32{1}, nil
}

func TestDispatch_CallerCancellation(t *testing.T) {
	slow := &slowGateway{release: make(chan struct{})}
	gw := Dispatch(slow, workpool.New(1, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := gw.Embed(ctx, "text")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(slow.release)
	assert.Eventually(t, slow.finished.Load, time.Second, 5*time.Millisecond)
}

func TestDispatch_PassesThrough(t *testing.T) {
	local, err := NewLocal(localConfig(), nil)
	require.NoError(t, err)
	gw := Dispatch(local, workpool.New(2, nil))

	assert.Equal(t, config.BackendLocal, gw.Backend())
	vec, err := gw.Embed(context.Background(), "fox")
	require.NoError(t, err)
	assert.Len(t, vec, 384)

	_, err = gw.Answer(context.Background(), "q", "c")
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.Same(t, local, Dispatch(local, nil))
}
