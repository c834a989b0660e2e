package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store/memory"
)

const staticIndex = "<html>chat</html>"

type testServer struct {
	*httptest.Server
	hub     *core.Hub
	store   *memory.Store
	stopHub context.CancelFunc
}

// startTestServer runs a hub over an in-memory store behind a test HTTP server.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	disabledLogger := zerolog.New(nil).Level(zerolog.Disabled)

	st := memory.New()
	hub := core.NewHub(st, nil, &disabledLogger, core.HubOptions{StoreTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte(staticIndex), 0o600))

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.StaticDir = staticDir
	if mutate != nil {
		mutate(&cfg)
	}

	server := NewServer(hub, st, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, hub: hub, store: st, stopHub: cancel}
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

type wsClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dial(t *testing.T, ts *testServer) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return &wsClient{t: t, ctx: ctx, conn: conn}
}

func (c *wsClient) send(kind string, data any) {
	c.t.Helper()

	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		require.NoError(c.t, err)
		raw = payload
	}
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, proto.Inbound{Type: kind, Data: raw}))
}

func (c *wsClient) join(room, username string) {
	c.t.Helper()
	c.send(proto.InboundTypeJoin, proto.JoinData{Chat: room, Username: username})
}

func (c *wsClient) read() frame {
	c.t.Helper()

	var f frame
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &f))
	return f
}

// expectEvent reads the next frame and requires it to be the named event.
func (c *wsClient) expectEvent(name string, into any) {
	c.t.Helper()

	f := c.read()
	require.Equal(c.t, proto.OutboundTypeEvent, f.Type, "frame: %+v", f)
	require.Equal(c.t, name, f.Event)
	if into != nil {
		require.NoError(c.t, json.Unmarshal(f.Data, into))
	}
}

func (c *wsClient) expectError(code string) {
	c.t.Helper()

	f := c.read()
	require.Equal(c.t, proto.OutboundTypeError, f.Type, "frame: %+v", f)
	require.NotNil(c.t, f.Error)
	require.Equal(c.t, code, f.Error.Code)
}

// joined joins and consumes the joiner's own member list and history.
func (c *wsClient) joined(room, username string) []string {
	c.t.Helper()

	c.join(room, username)
	var users []string
	c.expectEvent(proto.EventUpdateUsers, &users)
	c.expectEvent(proto.EventLoadMessages, nil)
	return users
}
