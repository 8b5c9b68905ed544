// Package consultation runs the business strategy interview: it seeds new
// sessions, replays the transcript to the completion provider and grows the
// history one exchange at a time.
package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/ai4cs/internal/domain"
	"github.com/soyeahso/ai4cs/internal/hooks"
	"github.com/soyeahso/ai4cs/internal/llm"
	"github.com/soyeahso/ai4cs/internal/logging"
	"github.com/soyeahso/ai4cs/internal/session"
)

// ErrSessionNotFound is returned by Advance for unknown or expired ids.
var ErrSessionNotFound = session.ErrSessionNotFound

// Completer produces the next model turn for a transcript.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// FailurePolicy decides what happens to the pending user turn when the
// provider call fails.
type FailurePolicy string

const (
	// PolicyKeep leaves the user turn in history.
	PolicyKeep FailurePolicy = "keep"
	// PolicyRollback removes it so history keeps alternating.
	PolicyRollback FailurePolicy = "rollback"
)

// ParsePolicy maps a config string onto a FailurePolicy. Empty means keep.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", PolicyKeep:
		return PolicyKeep, nil
	case PolicyRollback:
		return PolicyRollback, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// Engine drives consultations against a Completer and a session Store.
type Engine struct {
	provider Completer
	sessions session.Store
	policy   FailurePolicy
	hooks    *hooks.Manager
	log      *logging.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the provider failure policy.
func WithPolicy(p FailurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithHooks sets the lifecycle event sink.
func WithHooks(m *hooks.Manager) Option {
	return func(e *Engine) { e.hooks = m }
}

// WithClock overrides time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine creates an Engine.
func NewEngine(provider Completer, sessions session.Store, log *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		sessions: sessions,
		policy:   PolicyKeep,
		log:      log.Sub("consultation"),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the configured failure policy.
func (e *Engine) Policy() FailurePolicy {
	return e.policy
}

// StartSession seeds a new consultation and asks the provider for the
// opening question. The session is stored only after the provider answers.
func (e *Engine) StartSession(ctx context.Context) (string, string, error) {
	id := e.newID()
	now := e.now()

	sess := domain.Session{
		ID: id,
		History: []domain.Message{
			domain.UserTurn(SystemPrompt, now),
			domain.ModelTurn(Acknowledgement, now),
			domain.UserTurn(StartInstruction, now),
		},
		Answers:   []string{},
		Step:      domain.StepFunctionSelection,
		CreatedAt: now,
		UpdatedAt: now,
	}

	start := time.Now()
	question, err := e.provider.Complete(ctx, toLLM(sess.History))
	if err != nil {
		e.log.Warn().Err(err).Str("session", id).Msg("opening question failed")
		return "", "", err
	}

	sess.History = append(sess.History, domain.ModelTurn(question, e.now()))
	if _, err := e.sessions.Create(sess); err != nil {
		return "", "", fmt.Errorf("storing session: %w", err)
	}

	e.log.Info().Str("session", id).Dur("elapsed", time.Since(start)).Msg("consultation started")
	e.hooks.Emit(ctx, hooks.EventSessionStart, id, map[string]any{
		"step":       string(sess.Step),
		"question":   question,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return id, question, nil
}

// Advance records the user's answer, asks the provider for the next turn
// and returns it. Calls for one session are serialized by the store.
func (e *Engine) Advance(ctx context.Context, id, answer string) (string, error) {
	if _, ok := e.sessions.Get(id); !ok {
		return "", ErrSessionNotFound
	}

	e.hooks.Emit(ctx, hooks.EventBeforeAdvance, id, map[string]any{"answer": answer})

	var (
		reply   string
		step    domain.Step
		seq     int
		elapsed time.Duration
	)
	err := e.sessions.Update(ctx, id, func(sess *domain.Session) error {
		sess.History = append(sess.History, domain.UserTurn(BuildAnswerTurn(answer), e.now()))

		start := time.Now()
		text, err := e.provider.Complete(ctx, toLLM(sess.History))
		elapsed = time.Since(start)
		if err != nil {
			if e.policy == PolicyRollback {
				sess.History = sess.History[:len(sess.History)-1]
			}
			return err
		}

		sess.Answers = append(sess.Answers, answer)
		sess.History = append(sess.History, domain.ModelTurn(text, e.now()))
		sess.Step = domain.NextStep(sess.Step, len(sess.Answers), text)

		reply, step, seq = text, sess.Step, len(sess.Answers)
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return "", ErrSessionNotFound
		}
		e.log.Warn().Err(err).Str("session", id).Str("policy", string(e.policy)).Dur("elapsed", elapsed).Msg("advance failed")
		e.hooks.Emit(ctx, hooks.EventAdvanceFailed, id, map[string]any{
			"answer":     answer,
			"error":      err.Error(),
			"kind":       llm.Kind(err),
			"policy":     string(e.policy),
			"durationMs": elapsed.Milliseconds(),
		})
		return "", err
	}

	e.log.Debug().Str("session", id).Str("step", string(step)).Int("answers", seq).Dur("elapsed", elapsed).Msg("advanced")
	e.hooks.Emit(ctx, hooks.EventAfterAdvance, id, map[string]any{
		"seq":        seq,
		"answer":     answer,
		"reply":      reply,
		"step":       string(step),
		"durationMs": elapsed.Milliseconds(),
	})
	return reply, nil
}

// Session returns a snapshot of a live session.
func (e *Engine) Session(id string) (domain.Session, bool) {
	return e.sessions.Get(id)
}

func toLLM(history []domain.Message) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, m := range history {
		role := llm.RoleUser
		if m.Role == domain.RoleModel {
			role = llm.RoleAssistant
		}
		out[i] = llm.Message{Role: role, Content: m.Text}
	}
	return out
}
