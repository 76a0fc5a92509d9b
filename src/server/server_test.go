package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/codeloom/relay/config"
	"github.com/codeloom/relay/src/auth"
	"github.com/codeloom/relay/src/hub"
)

type staticVerifier struct {
	actorID string
	err     error
}

func (s *staticVerifier) Verify(string) (string, error) {
	return s.actorID, s.err
}

func newTestServer(t *testing.T) (*Server, *hub.Hub) {
	t.Helper()
	h := hub.New(zerolog.Nop())
	go h.Run()
	t.Cleanup(func() { h.Stop() })

	s := New(config.Default(), h, &staticVerifier{actorID: "alice"}, nil, nil, zerolog.Nop())
	return s, h
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestInfoReportsCounts(t *testing.T) {
	s, h := newTestServer(t)

	conn := &nopConn{}
	c := hub.NewClient("c-1", "alice", conn, h)
	c.RoomID = "p1"
	h.Register(c)
	time.Sleep(20 * time.Millisecond)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/ws/info", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Websocket bool   `json:"websocket"`
		Endpoint  string `json:"endpoint"`
		Actors    int    `json:"actors"`
		Rooms     int    `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Websocket)
	assert.Equal(t, "/ws", body.Endpoint)
	assert.Equal(t, 1, body.Actors)
	assert.Equal(t, 1, body.Rooms)
}

func TestPresenceFallsBackToRegistry(t *testing.T) {
	s, h := newTestServer(t)

	c := hub.NewClient("c-1", "alice", &nopConn{}, h)
	c.RoomID = "p1"
	h.Register(c)
	time.Sleep(20 * time.Millisecond)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/rooms/p1/presence", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		RoomID string   `json:"room_id"`
		Online []string `json:"online"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "p1", body.RoomID)
	assert.Equal(t, []string{"alice"}, body.Online)
}

func TestHistoryDisabled(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/rooms/p1/history", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestWebSocketPathRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.Handler()

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/ws")

	handler(&ctx)
	assert.Equal(t, fasthttp.StatusUpgradeRequired, ctx.Response.StatusCode())
}

func TestAuthenticateBearerHeader(t *testing.T) {
	s, _ := newTestServer(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer some-token")

	actorID, err := s.authenticate(&ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", actorID)
}

func TestAuthenticateRejected(t *testing.T) {
	h := hub.New(zerolog.Nop())
	s := New(config.Default(), h, &staticVerifier{err: auth.ErrInvalidToken}, nil, nil, zerolog.Nop())

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/ws?token=bad")
	ctx.Request.Header.Set("Upgrade", "websocket")

	s.websocketHandler()(&ctx)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

// nopConn satisfies types.Conn for registry-only tests.
type nopConn struct{}

func (nopConn) WriteMessage([]byte) error    { return nil }
func (nopConn) ReadMessage() ([]byte, error) { select {} }
func (nopConn) Close() error                 { return nil }
