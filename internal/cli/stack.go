package cli

import (
	"context"
	"fmt"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/consultation"
	"github.com/soyeahso/ai4cs/internal/hooks"
	"github.com/soyeahso/ai4cs/internal/lifecycle"
	"github.com/soyeahso/ai4cs/internal/llm"
	"github.com/soyeahso/ai4cs/internal/logging"
	"github.com/soyeahso/ai4cs/internal/session"
	"github.com/soyeahso/ai4cs/internal/store"
)

// stack is the consultation pipeline shared by serve and consult.
type stack struct {
	hooks    *hooks.Manager
	sessions *session.MemoryStore
	provider *llm.Provider
	registry *llm.Registry
	engine   *consultation.Engine
	service  *lifecycle.Service
	db       *store.DB // nil when the journal is disabled
}

func buildStack(ctx context.Context, cfg config.Config, journalPath string, log *logging.Logger) (*stack, error) {
	policy, err := consultation.ParsePolicy(cfg.Session.OnProviderFailure)
	if err != nil {
		return nil, err
	}

	st := &stack{
		hooks:    hooks.NewManager(log),
		registry: llm.NewRegistry(log),
	}

	st.provider, err = llm.NewProviderFromConfig(ctx, cfg.Provider, st.registry, log)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	st.sessions = session.NewMemoryStore(session.MemoryOptions{
		TTL:         cfg.Session.TTL(),
		MaxSessions: cfg.Session.MaxSessions,
		OnEvict: func(id string, reason session.EvictReason) {
			st.hooks.EmitAsync(context.Background(), hooks.EventSessionEnd, id, map[string]any{
				"reason": string(reason),
			})
		},
	}, log)

	if cfg.Journal.IsEnabled() {
		st.db, err = store.Open(journalPath, log)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		store.NewJournal(st.db).Attach(st.hooks)
	}

	st.engine = consultation.NewEngine(st.provider, st.sessions, log,
		consultation.WithPolicy(policy),
		consultation.WithHooks(st.hooks),
	)
	st.service = lifecycle.NewService(st.engine, log)
	return st, nil
}

// Close drains pending hook deliveries and closes the journal.
func (st *stack) Close() error {
	st.hooks.Wait()
	if st.db != nil {
		return st.db.Close()
	}
	return nil
}
