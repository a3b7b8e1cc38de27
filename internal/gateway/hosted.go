package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bull/docintel/internal/config"
)

// Hosted talks to an OpenAI-compatible HTTP API.
type Hosted struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	shape          config.WireShape
	maxTokens      int64
	timeout        time.Duration
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// NewHosted builds the hosted variant. The API key is mandatory.
//
// The underlying client never retries: a failed call is reported to the
// caller as is.
func NewHosted(cfg *config.Config, logger *zap.Logger) (*Hosted, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	oc := cfg.OpenAI
	if oc.APIKey == "" {
		return nil, fmt.Errorf("%w: hosted backend requires OPENAI_API_KEY", config.ErrConfiguration)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(oc.APIKey),
		option.WithMaxRetries(0),
	}
	if oc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(oc.BaseURL))
	}
	if oc.Organization != "" {
		opts = append(opts, option.WithOrganization(oc.Organization))
	}
	if oc.Project != "" {
		opts = append(opts, option.WithProject(oc.Project))
	}
	for k, v := range oc.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := openai.NewClient(opts...)

	h := &Hosted{
		client:         &client,
		chatModel:      oc.ChatModel,
		embeddingModel: oc.EmbeddingModel,
		shape:          oc.WireShape,
		maxTokens:      int64(cfg.SummaryMaxTokens),
		timeout:        cfg.ProviderTimeout,
		logger:         logger,
	}
	if oc.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(oc.RateLimit), 1)
	}

	logger.Info("hosted gateway ready",
		zap.String("chat_model", h.chatModel),
		zap.String("embedding_model", h.embeddingModel),
		zap.Stringer("wire_shape", h.shape),
		zap.Bool("custom_base_url", oc.BaseURL != ""),
		zap.Int("custom_headers", len(oc.Headers)),
	)
	return h, nil
}

// Backend implements Gateway.
func (h *Hosted) Backend() config.Backend { return config.BackendHosted }

// WireShape reports the request format used for text generation.
func (h *Hosted) WireShape() config.WireShape { return h.shape }

// Embed implements Gateway.
func (h *Hosted) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	ctx, cancel, err := h.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	resp, err := h.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(h.embeddingModel),
	})
	if err != nil {
		return nil, h.fail("embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embed: response carried no vectors", ErrProvider)
	}
	return toFloat32(resp.Data[0].Embedding), nil
}

// Summarize implements Gateway. Each chunk is one request.
func (h *Hosted) Summarize(ctx context.Context, chunks []string) (string, error) {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var (
			out string
			err error
		)
		if h.shape == config.WireShapeMultiTurn {
			out, err = h.chat(ctx, summarizeSystem, chunk)
		} else {
			out, err = h.respond(ctx, summarizeInstruction+chunk)
		}
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d: %w", i, err)
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.Join(parts, " "), nil
}

// Answer implements Gateway.
func (h *Hosted) Answer(ctx context.Context, query, docContext string) (string, error) {
	prompt := AnswerPrompt(query, docContext)

	var (
		out string
		err error
	)
	if h.shape == config.WireShapeMultiTurn {
		out, err = h.chat(ctx, answerSystem, prompt)
	} else {
		out, err = h.respond(ctx, prompt)
	}
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// respond sends a single-shot request to the Responses API.
func (h *Hosted) respond(ctx context.Context, prompt string) (string, error) {
	ctx, cancel, err := h.begin(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	resp, err := h.client.Responses.New(ctx, responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Model:           shared.ResponsesModel(h.chatModel),
		MaxOutputTokens: openai.Int(h.maxTokens),
	})
	if err != nil {
		return "", h.fail("responses", err)
	}
	return resp.OutputText(), nil
}

// chat sends a system + user exchange to Chat Completions.
func (h *Hosted) chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel, err := h.begin(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	resp, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:     openai.ChatModel(h.chatModel),
		MaxTokens: openai.Int(h.maxTokens),
	})
	if err != nil {
		return "", h.fail("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion: response carried no choices", ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// begin applies the optional rate limit and request timeout.
func (h *Hosted) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("%w: rate limiter: %w", ErrProvider, err)
		}
	}
	if h.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		return ctx, cancel, nil
	}
	return ctx, func() {}, nil
}

func (h *Hosted) fail(op string, err error) error {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.Int("status", apiErr.StatusCode))
	}
	h.logger.Warn("provider call failed", fields...)
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}

// toFloat32 narrows the API's float64 vectors to the index's element type.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
