package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/consultation"
	"github.com/soyeahso/ai4cs/internal/hooks"
	"github.com/soyeahso/ai4cs/internal/lifecycle"
	"github.com/soyeahso/ai4cs/internal/llm"
	"github.com/soyeahso/ai4cs/internal/session"
)

// fixture is a gateway backed by the real consultation stack and a scripted
// completion client.
type fixture struct {
	srv   *Server
	ts    *httptest.Server
	store *session.MemoryStore
	hooks *hooks.Manager

	calls atomic.Int64
	mu    sync.Mutex
	fail  error
}

func (f *fixture) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func newFixture(t *testing.T, opts ...ServerOption) *fixture {
	t.Helper()
	f := &fixture{}
	log := testLog()

	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			f.mu.Lock()
			err := f.fail
			f.mu.Unlock()
			if err != nil {
				return nil, err
			}
			n := f.calls.Add(1)
			return &llm.CompletionResponse{Content: fmt.Sprintf("Question %d?", n)}, nil
		},
	}
	provider := llm.NewProvider(client, llm.ProviderOptions{Timeout: 5 * time.Second}, log)

	f.hooks = hooks.NewManager(log)
	f.store = session.NewMemoryStore(session.MemoryOptions{}, log)
	engine := consultation.NewEngine(provider, f.store, log, consultation.WithHooks(f.hooks))
	svc := lifecycle.NewService(engine, log)

	opts = append([]ServerOption{WithGenerator(provider), WithSessions(f.store), WithHooks(f.hooks)}, opts...)
	cfg := config.Defaults()
	cfg.Gateway.AllowedOrigins = []string{"http://localhost:3000"}
	f.srv = New(cfg, svc, log, opts...)

	f.ts = httptest.NewServer(f.srv.Handler())
	t.Cleanup(f.ts.Close)
	return f
}

// dial opens a websocket and completes the connect handshake.
func (f *fixture) dial(t *testing.T) (*websocket.Conn, HelloOK) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	req, err := NewRequest("hello", "connect", ConnectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client:      ClientInfo{ID: "test-client", Version: "1.0.0"},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	res := readFrame(t, conn)
	require.Equal(t, "hello", res.ID)
	require.NotNil(t, res.OK)
	require.True(t, *res.OK)

	var hello HelloOK
	require.NoError(t, json.Unmarshal(res.Payload, &hello))
	return conn, hello
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func call(t *testing.T, conn *websocket.Conn, id, method string, params any) Frame {
	t.Helper()
	req, err := NewRequest(id, method, params)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))
	res := readFrame(t, conn)
	require.Equal(t, FrameTypeResponse, res.Type)
	require.Equal(t, id, res.ID)
	return res
}

func TestWebSocket_Handshake(t *testing.T) {
	f := newFixture(t)
	_, hello := f.dial(t)

	assert.Equal(t, ProtocolVersion, hello.Protocol)
	assert.NotEmpty(t, hello.Server.ConnID)
	assert.Equal(t, []string{"consultation.next", "consultation.start", "health"}, hello.Features.Methods)
	assert.Equal(t, []string{EventSessionEnd}, hello.Features.Events)
	assert.Equal(t, maxPayload, hello.Policy.MaxPayload)
}

func TestWebSocket_HandshakeRejectsOtherFirstFrame(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	req, err := NewRequest("x", "health", nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	res := readFrame(t, conn)
	require.NotNil(t, res.Error)
	assert.Equal(t, "protocol_error", res.Error.Code)
}

func TestWebSocket_HandshakeProtocolMismatch(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	req, err := NewRequest("x", "connect", ConnectParams{MinProtocol: ProtocolVersion + 1, MaxProtocol: ProtocolVersion + 1})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	res := readFrame(t, conn)
	require.NotNil(t, res.Error)
	assert.Equal(t, "protocol_mismatch", res.Error.Code)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_Health(t *testing.T) {
	f := newFixture(t)
	conn, _ := f.dial(t)

	res := call(t, conn, "1", "consultation.start", nil)
	require.True(t, *res.OK)

	res = call(t, conn, "2", "health", nil)
	require.True(t, *res.OK)
	var h HealthResponse
	require.NoError(t, json.Unmarshal(res.Payload, &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.Clients)
	assert.Equal(t, 1, h.Sessions)
	assert.NotEmpty(t, h.Version)
}

func TestWebSocket_Consultation(t *testing.T) {
	f := newFixture(t)
	conn, _ := f.dial(t)

	res := call(t, conn, "1", "consultation.start", nil)
	require.True(t, *res.OK)
	var started lifecycle.StartResult
	require.NoError(t, json.Unmarshal(res.Payload, &started))
	assert.NotEmpty(t, started.SessionID)
	assert.Equal(t, "Question 1?", started.Question)

	res = call(t, conn, "2", "consultation.next", map[string]string{
		"session_id": started.SessionID,
		"answer":     "We sell coffee.",
	})
	require.True(t, *res.OK)
	var next lifecycle.AdvanceResult
	require.NoError(t, json.Unmarshal(res.Payload, &next))
	assert.Equal(t, "Question 2?", next.Question)

	sess, ok := f.store.Get(started.SessionID)
	require.True(t, ok)
	assert.Len(t, sess.History, 6)
}

func TestWebSocket_ConsultationErrors(t *testing.T) {
	f := newFixture(t)
	conn, _ := f.dial(t)

	res := call(t, conn, "1", "consultation.next", map[string]string{"session_id": "nope", "answer": "x"})
	require.False(t, *res.OK)
	assert.Equal(t, lifecycle.CodeSessionNotFound, res.Error.Code)
	assert.Equal(t, lifecycle.SessionNotFoundMessage, res.Error.Message)
	assert.False(t, res.Error.Retryable)

	res = call(t, conn, "2", "consultation.next", map[string]string{"session_id": "nope"})
	require.False(t, *res.OK)
	assert.Equal(t, lifecycle.CodeInvalidRequest, res.Error.Code)

	res = call(t, conn, "3", "consultation.next", []int{1})
	require.False(t, *res.OK)
	assert.Equal(t, lifecycle.CodeInvalidRequest, res.Error.Code)

	f.setFailure(&llm.UpstreamError{Provider: "mock", Status: 503, Body: "overloaded"})
	res = call(t, conn, "4", "consultation.start", nil)
	require.False(t, *res.OK)
	assert.Equal(t, lifecycle.CodeUpstream, res.Error.Code)
	assert.True(t, res.Error.Retryable)
	assert.Equal(t, map[string]any{"status": float64(503), "body": "overloaded"}, res.Error.Details)
}

func TestWebSocket_UnknownMethod(t *testing.T) {
	f := newFixture(t)
	conn, _ := f.dial(t)

	res := call(t, conn, "1", "chat.send", nil)
	require.False(t, *res.OK)
	assert.Equal(t, "method_not_found", res.Error.Code)
}

func TestWebSocket_SessionEndBroadcast(t *testing.T) {
	f := newFixture(t)
	conn, _ := f.dial(t)

	// A round trip guarantees the client is registered.
	call(t, conn, "1", "health", nil)

	f.hooks.Emit(context.Background(), hooks.EventSessionEnd, "sess-1", map[string]any{"reason": "expired"})

	ev := readFrame(t, conn)
	assert.Equal(t, FrameTypeEvent, ev.Type)
	assert.Equal(t, EventSessionEnd, ev.Event)
	assert.Equal(t, int64(1), ev.Seq)
	assert.JSONEq(t, `{"session_id":"sess-1","reason":"expired"}`, string(ev.Payload))
}

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Port = 0
	cfg.Gateway.Bind = "loopback"

	hm := hooks.NewManager(testLog())
	var mu sync.Mutex
	var events []string
	record := func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p.Event)
		return nil
	}
	hm.On(hooks.EventGatewayStart, "test", record)
	hm.On(hooks.EventGatewayStop, "test", record)

	srv := New(cfg, nil, testLog(), WithHooks(hm))
	assert.Empty(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	require.True(t, strings.HasPrefix(srv.Addr(), "127.0.0.1:"))

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{hooks.EventGatewayStart, hooks.EventGatewayStop}, events)
}

func TestServer_StartListenError(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Bind = "custom"
	cfg.Gateway.CustomBindHost = "256.0.0.1"

	err := New(cfg, nil, testLog()).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
