package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/logging"
)

// Registry manages completion clients by provider name.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	log     *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// Resolve returns the Client registered under name.
func (r *Registry) Resolve(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no LLM provider for %q", name)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewClientFromConfig constructs the vendor client selected by cfg.Name.
func NewClientFromConfig(ctx context.Context, cfg config.ProviderConfig) (Client, error) {
	switch cfg.Name {
	case "gemini":
		return NewGeminiAPIClient(cfg.APIKey, cfg.Model, cfg.Endpoint), nil
	case "genai":
		return NewGenAIClient(ctx, cfg.APIKey, cfg.Model, cfg.Endpoint)
	case "claude":
		return NewClaudeAPIClient(cfg.APIKey, cfg.Model, cfg.Endpoint), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.Endpoint), nil
	case "ollama":
		return NewOllamaAPIClient(cfg.Endpoint, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// NewProviderFromConfig builds the configured client, registers it, and
// returns it wrapped in a Provider with the configured limits.
func NewProviderFromConfig(ctx context.Context, cfg config.ProviderConfig, reg *Registry, log *logging.Logger) (*Provider, error) {
	client, err := NewClientFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		reg.Register(cfg.Name, client)
	}
	return NewProvider(client, ProviderOptions{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout(),
	}, log), nil
}
