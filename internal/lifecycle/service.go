// Package lifecycle is the boundary between transports and the consultation
// engine: it validates requests and turns engine failures into typed,
// caller-safe errors.
package lifecycle

import (
	"context"

	"github.com/soyeahso/ai4cs/internal/logging"
)

// Engine is the consultation engine surface the service drives.
type Engine interface {
	StartSession(ctx context.Context) (string, string, error)
	Advance(ctx context.Context, id, answer string) (string, error)
}

// StartResult is returned by StartConsultation.
type StartResult struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// AdvanceRequest carries the fields of a follow-up call. A nil field is
// missing; an empty string is a valid value.
type AdvanceRequest struct {
	SessionID *string `json:"session_id"`
	Answer    *string `json:"answer"`
}

// AdvanceResult is returned by Advance.
type AdvanceResult struct {
	Question string `json:"question"`
}

// Service exposes the two consultation operations to transports.
type Service struct {
	engine Engine
	log    *logging.Logger
}

// NewService creates a Service.
func NewService(engine Engine, log *logging.Logger) *Service {
	return &Service{engine: engine, log: log.Sub("lifecycle")}
}

// StartConsultation opens a new session and returns its first question.
func (s *Service) StartConsultation(ctx context.Context) (*StartResult, error) {
	id, question, err := s.engine.StartSession(ctx)
	if err != nil {
		return nil, s.fail("start", "", err)
	}
	return &StartResult{SessionID: id, Question: question}, nil
}

// Advance submits an answer and returns the next question or advisory note.
func (s *Service) Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error) {
	if req.SessionID == nil {
		return nil, invalidRequest("Missing required field: session_id")
	}
	if req.Answer == nil {
		return nil, invalidRequest("Missing required field: answer")
	}

	next, err := s.engine.Advance(ctx, *req.SessionID, *req.Answer)
	if err != nil {
		return nil, s.fail("advance", *req.SessionID, err)
	}
	return &AdvanceResult{Question: next}, nil
}

func (s *Service) fail(op, sessionID string, err error) *Error {
	le := Classify(err)
	ev := s.log.Warn()
	if le.Code == CodeInternal {
		ev = s.log.Error()
	}
	ev.Err(err).Str("op", op).Str("session", sessionID).Str("code", le.Code).Msg("consultation request failed")
	return le
}
