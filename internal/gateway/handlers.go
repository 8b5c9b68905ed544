package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/soyeahso/ai4cs/internal/lifecycle"
)

// maxBodyBytes caps HTTP request bodies.
const maxBodyBytes = 1 << 20

// HealthResponse is returned by health endpoints. The HTTP endpoint only
// populates Status; the RPC health method fills in the rest.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Clients  int    `json:"clients,omitempty"`
	Sessions int    `json:"sessions,omitempty"`
	UptimeMs int64  `json:"uptimeMs,omitempty"`
}

// GenerateResponse mirrors the upstream candidates shape that existing
// frontends parse.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content CandidateContent `json:"content"`
}

type CandidateContent struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// consultationRequest is the body of POST /consultation.
type consultationRequest struct {
	Type      string  `json:"type"`
	SessionID *string `json:"session_id"`
	Answer    *string `json:"answer"`
}

const (
	msgInvalidJSON     = "Invalid JSON body"
	msgInvalidType     = "Invalid type. Use 'start' or 'next'."
	msgQuestionMissing = "Question is required"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "AI4CS Backend API",
		"endpoints": map[string]string{
			"consultation": "/consultation",
			"general":      "/api/generate",
			"legacy":       "/generate (deprecated)",
			"health":       "/health",
			"websocket":    "/ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// health builds the detailed report served over RPC.
func (s *Server) health() HealthResponse {
	h := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Clients:  s.clients.Count(),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.sessions != nil {
		h.Sessions = s.sessions.Len()
	}
	return h
}

// handleConsultation serves both consultation operations, selected by "type".
func (s *Server) handleConsultation(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, badRequest(msgInvalidJSON))
		return
	}

	switch req.Type {
	case "start":
		res, err := s.consultations.StartConsultation(r.Context())
		if err != nil {
			writeError(w, lifecycle.Classify(err))
			return
		}
		writeJSON(w, http.StatusOK, res)
	case "next":
		res, err := s.consultations.Advance(r.Context(), lifecycle.AdvanceRequest{
			SessionID: req.SessionID,
			Answer:    req.Answer,
		})
		if err != nil {
			writeError(w, lifecycle.Classify(err))
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		writeError(w, badRequest(msgInvalidType))
	}
}

// handleGenerate answers a single question without a session.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(w, r, &body); err != nil || len(body) == 0 {
		writeError(w, badRequest(msgInvalidJSON))
		return
	}
	question, _ := body["question"].(string)
	if question == "" {
		writeError(w, badRequest(msgQuestionMissing))
		return
	}

	if s.generator == nil {
		writeError(w, &lifecycle.Error{
			Code:    lifecycle.CodeInternal,
			Status:  http.StatusServiceUnavailable,
			Message: "Generation is not configured.",
		})
		return
	}

	text, err := s.generator.Generate(r.Context(), question)
	if err != nil {
		le := lifecycle.Classify(err)
		s.log.Warn().Err(err).Str("code", le.Code).Msg("generate failed")
		writeError(w, le)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Candidates: []Candidate{{Content: CandidateContent{Parts: []Part{{Text: text}}}}},
	})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}

func badRequest(msg string) *lifecycle.Error {
	return &lifecycle.Error{Code: lifecycle.CodeInvalidRequest, Status: http.StatusBadRequest, Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, le *lifecycle.Error) {
	writeJSON(w, le.Status, le)
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(rc *RequestContext)

// RequestContext carries everything a handler needs. Ctx ends when the
// client disconnects.
type RequestContext struct {
	Ctx    context.Context
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.send(ErrorShape{Code: code, Message: message})
}

// Fail classifies err and sends it as an error response.
func (rc *RequestContext) Fail(err error) {
	le := lifecycle.Classify(err)
	rc.send(ErrorShape{
		Code:      le.Code,
		Message:   le.Message,
		Details:   le.Details,
		Retryable: retryable(le.Code),
	})
}

func (rc *RequestContext) send(shape ErrorShape) {
	if err := rc.Client.RespondError(rc.Frame.ID, shape); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send error")
	}
}

// Params unmarshals the request params into the given target.
func (rc *RequestContext) Params(target any) error {
	if rc.Frame.Params == nil {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}

func retryable(code string) bool {
	switch code {
	case lifecycle.CodeTimeout, lifecycle.CodeTransport, lifecycle.CodeUpstream, lifecycle.CodeEmptyCompletion:
		return true
	}
	return false
}
