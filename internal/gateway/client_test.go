package gateway

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/logging"
)

func testLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestClientRegistry_AddGetRemove(t *testing.T) {
	reg := NewClientRegistry(testLog())
	assert.Equal(t, 0, reg.Count())

	reg.Add(&Client{ConnID: "conn-1", Info: ClientInfo{ID: "web"}})
	assert.Equal(t, 1, reg.Count())

	got, ok := reg.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "web", got.Info.ID)

	reg.Remove("conn-1")
	reg.Remove("never-added")
	assert.Equal(t, 0, reg.Count())

	_, ok = reg.Get("conn-1")
	assert.False(t, ok)
}

func TestClientRegistry_Count(t *testing.T) {
	reg := NewClientRegistry(testLog())
	for i := range 5 {
		reg.Add(&Client{ConnID: fmt.Sprintf("conn-%d", i)})
	}
	assert.Equal(t, 5, reg.Count())
}

func TestClientRegistry_CloseAll(t *testing.T) {
	reg := NewClientRegistry(testLog())

	// Already-closed clients never touch their socket.
	reg.Add(&Client{ConnID: "conn-1", closed: true})
	reg.Add(&Client{ConnID: "conn-2", closed: true})

	reg.CloseAll()
	assert.Equal(t, 0, reg.Count())
}

func TestClient_SendAfterClose(t *testing.T) {
	c := &Client{ConnID: "conn-1", closed: true}
	assert.ErrorIs(t, c.Send(Frame{Type: FrameTypeEvent}), ErrClientClosed)
	assert.NoError(t, c.Close())
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		name string
		bind string
		port int
		host string
		want string
	}{
		{"loopback", "loopback", 5000, "", "127.0.0.1:5000"},
		{"lan", "lan", 9999, "", "0.0.0.0:9999"},
		{"auto", "auto", 8080, "", "0.0.0.0:8080"},
		{"custom default host", "custom", 3000, "", "0.0.0.0:3000"},
		{"custom host", "custom", 3000, "10.0.0.1", "10.0.0.1:3000"},
		{"unknown falls back", "whatever", 5000, "", "127.0.0.1:5000"},
		{"empty falls back", "", 5000, "", "127.0.0.1:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GatewayConfig{Bind: tt.bind, Port: tt.port, CustomBindHost: tt.host}
			assert.Equal(t, tt.want, resolveBindAddr(cfg))
		})
	}
}
