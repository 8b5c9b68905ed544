package gateway

import (
	"net/http"

	"github.com/soyeahso/ai4cs/internal/lifecycle"
)

// registerHTTPRoutes sets up all HTTP routes on the server mux. OPTIONS
// preflights are answered by corsMiddleware before routing.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /consultation", s.handleConsultation)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("consultation.start", s.rpcConsultationStart)
	s.Handle("consultation.next", s.rpcConsultationNext)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(s.health())
}

func (s *Server) rpcConsultationStart(rc *RequestContext) {
	res, err := s.consultations.StartConsultation(rc.Ctx)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(res)
}

func (s *Server) rpcConsultationNext(rc *RequestContext) {
	var req lifecycle.AdvanceRequest
	if err := rc.Params(&req); err != nil {
		rc.RespondError(lifecycle.CodeInvalidRequest, "invalid params: "+err.Error())
		return
	}
	res, err := s.consultations.Advance(rc.Ctx, req)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(res)
}
