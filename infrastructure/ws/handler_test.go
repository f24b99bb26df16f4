package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/storage"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const maxFrameBytes = 4096

type fixture struct {
	server       *httptest.Server
	issuer       *auth.TokenIssuer
	orchestrator *runtime.Orchestrator
	monitoring   *observability.MonitoringManager
}

func newFixture(t *testing.T, config runtime.Config) fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer := auth.NewTokenIssuer("secret", time.Hour)
	monitoring := observability.NewMonitoringManager(log)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, repositories.NewMessageRepository(db, log, nil),
		storage.NewDiskStore(t.TempDir(), log), monitoring, time.Second, 50*time.Millisecond)
	presence := runtime.NewPresenceBroadcaster(log, registry, monitoring, 50*time.Millisecond)
	orchestrator := runtime.NewOrchestrator(log, config, workers.NewSupervisor(log, 0),
		registry, router, presence, auth.NewResolver(issuer), monitoring)

	server := httptest.NewServer(NewHandler(log, orchestrator, "http://localhost:3000", time.Second, maxFrameBytes))
	t.Cleanup(func() {
		orchestrator.CloseAll()
		server.Close()
	})
	return fixture{server: server, issuer: issuer, orchestrator: orchestrator, monitoring: monitoring}
}

func (f fixture) dial(t *testing.T, identity *domain.Identity, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if identity != nil {
		token, err := f.issuer.GenerateToken(*identity)
		require.NoError(t, err)
		header.Set("Cookie", auth.TokenCookie+"="+token)
	}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		if match(frame) {
			return frame
		}
	}
}

func onlineCount(n int) func(map[string]any) bool {
	return func(frame map[string]any) bool {
		online, ok := frame["online"].([]any)
		return ok && len(online) == n
	}
}

func TestHandler_Presence_And_Message(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, runtime.Config{PingInterval: time.Hour, PongTimeout: time.Hour, BufferSize: 16})

	// Given alice and bob connected with their cookies
	alice, _, err := f.dial(t, &domain.Identity{UserID: "u1", Username: "alice"}, "")
	req.NoError(err)
	bob, _, err := f.dial(t, &domain.Identity{UserID: "u2", Username: "bob"}, "")
	req.NoError(err)

	// Then alice learns that both are online
	presence := readUntil(t, alice, onlineCount(2))
	req.Equal([]any{
		map[string]any{"userId": "u1", "username": "alice"},
		map[string]any{"userId": "u2", "username": "bob"},
	}, presence["online"])

	// When alice writes to bob
	req.NoError(alice.WriteJSON(map[string]any{"recipient": "u2", "text": "hi"}))

	// Then bob receives it
	message := readUntil(t, bob, func(frame map[string]any) bool { _, ok := frame["_id"]; return ok })
	req.Equal("hi", message["text"])
	req.Equal("u1", message["sender"])
	req.Equal("u2", message["recipient"])
	req.Nil(message["file"])
}

func TestHandler_Foreign_Origin_Is_Refused(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, runtime.Config{PingInterval: time.Hour, PongTimeout: time.Hour, BufferSize: 16})

	_, resp, err := f.dial(t, &domain.Identity{UserID: "u1", Username: "alice"}, "http://evil.example")

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestHandler_Require_Identity_Closes_Anonymous(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, runtime.Config{PingInterval: time.Hour, PongTimeout: time.Hour, BufferSize: 16, RequireIdentity: true})

	conn, _, err := f.dial(t, nil, "")
	req.NoError(err)

	// Then the server closes the socket without sending anything
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
	req.Zero(f.orchestrator.Registry().Len())
}

func TestHandler_Peer_Not_Reading_Is_Evicted(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, runtime.Config{PingInterval: 20 * time.Millisecond, PongTimeout: 40 * time.Millisecond, BufferSize: 16})

	// Given a client that never reads, so it never answers pings
	_, _, err := f.dial(t, &domain.Identity{UserID: "u1", Username: "alice"}, "")
	req.NoError(err)

	// Then the server evicts it
	req.Eventually(func() bool { return f.monitoring.GetLatest().Evictions == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Eventually(func() bool { return f.orchestrator.Registry().Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_Reading_Peer_Stays(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, runtime.Config{PingInterval: 20 * time.Millisecond, PongTimeout: 200 * time.Millisecond, BufferSize: 16})

	conn, _, err := f.dial(t, &domain.Identity{UserID: "u1", Username: "alice"}, "")
	req.NoError(err)

	// gorilla answers pings while the client reads
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(300 * time.Millisecond)
	req.Zero(f.monitoring.GetLatest().Evictions)
	req.Equal(1, f.orchestrator.Registry().Len())
}

func TestHandler_Oversized_Frame_Closes_Session(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, runtime.Config{PingInterval: time.Hour, PongTimeout: time.Hour, BufferSize: 16})

	conn, _, err := f.dial(t, &domain.Identity{UserID: "u1", Username: "alice"}, "")
	req.NoError(err)
	readUntil(t, conn, onlineCount(1))

	// When the client sends a frame above the limit
	payload := strings.Repeat("A", 2*maxFrameBytes)
	req.NoError(conn.WriteJSON(map[string]any{"recipient": "u2", "file": map[string]string{"name": "big.bin", "data": payload}}))

	// Then the server closes with "message too big" and forgets the session
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	for {
		_, _, err = conn.ReadMessage()
		if err != nil {
			break
		}
	}
	req.True(websocket.IsCloseError(err, websocket.CloseMessageTooBig), "unexpected error %v", err)
	req.Eventually(func() bool { return f.orchestrator.Registry().Len() == 0 }, time.Second, 10*time.Millisecond)
}
