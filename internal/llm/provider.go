package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/soyeahso/ai4cs/internal/logging"
)

// ProviderOptions carries the call parameters applied to every completion.
type ProviderOptions struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

// Provider wraps a Client with a fixed model, sampling parameters and a hard
// per-call deadline. It is safe for concurrent use.
type Provider struct {
	client Client
	opts   ProviderOptions
	log    *logging.Logger
}

// NewProvider binds client to opts.
func NewProvider(client Client, opts ProviderOptions, log *logging.Logger) *Provider {
	return &Provider{
		client: client,
		opts:   opts,
		log:    log.Sub("llm.provider").With("provider", client.Name()),
	}
}

// Name returns the underlying client name.
func (p *Provider) Name() string {
	return p.client.Name()
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.opts.Model
}

// Complete sends the whole transcript and returns the trimmed reply text.
func (p *Provider) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.client.Complete(ctx, CompletionRequest{
		Model:       p.opts.Model,
		System:      p.opts.System,
		Messages:    messages,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = timeoutError(p.client.Name())
		}
		p.log.Warn().Err(err).Int("turns", len(messages)).Dur("elapsed", time.Since(start)).Msg("completion failed")
		return "", err
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		p.log.Warn().Str("stopReason", resp.StopReason).Msg("empty completion")
		return "", ErrEmptyCompletion
	}

	p.log.Debug().
		Int("turns", len(messages)).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("elapsed", time.Since(start)).
		Msg("completion ok")
	return text, nil
}

// Generate is a single-turn completion for stateless prompts.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	return p.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}})
}
