package runtime

import (
	"chat-relay/domain"
	"chat-relay/observability"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestPresenceBroadcaster_Reaches_Every_Connection(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	registry := NewRegistry()
	broadcaster := NewPresenceBroadcaster(log, registry, monitoring, 10*time.Millisecond)

	alice := NewConnection(newFakeTransport(), identified("u1", "alice"), 4)
	anonymous := NewConnection(newFakeTransport(), nil, 4)
	registry.Add(alice)
	registry.Add(anonymous)

	// When presence is broadcast
	broadcaster.Broadcast()

	// Then the unresolved connection receives the list without being in it
	expected := `{"online":[{"userId":"u1","username":"alice"}]}`
	for _, conn := range []*Connection{alice, anonymous} {
		frames := queued(conn)
		req.Len(frames, 1)
		req.JSONEq(expected, string(frames[0]))
	}
	req.Equal(uint64(1), monitoring.GetLatest().PresenceBroadcasts)
}

func TestPresenceBroadcaster_Triggered_By_Registry(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	registry := NewRegistry()
	broadcaster := NewPresenceBroadcaster(log, registry, monitoring, 10*time.Millisecond)
	registry.OnChange(broadcaster.Broadcast)

	alice := NewConnection(newFakeTransport(), identified("u1", "alice"), 4)
	bob := NewConnection(newFakeTransport(), identified("u2", "bob"), 4)

	// Given alice then bob connecting
	registry.Add(alice)
	registry.Add(bob)

	// Then alice saw herself, then both
	frames := queued(alice)
	req.Len(frames, 2)
	req.JSONEq(`{"online":[{"userId":"u1","username":"alice"}]}`, string(frames[0]))
	req.JSONEq(`{"online":[{"userId":"u1","username":"alice"},{"userId":"u2","username":"bob"}]}`, string(frames[1]))

	// When bob leaves
	registry.Remove(bob)

	// Then alice is told, bob is not
	frames = queued(alice)
	req.Len(frames, 1)
	req.JSONEq(`{"online":[{"userId":"u1","username":"alice"}]}`, string(frames[0]))
	req.Len(queued(bob), 1)
}

func TestPresenceBroadcaster_Full_Queue_Drops_Frame(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	registry := NewRegistry()
	broadcaster := NewPresenceBroadcaster(log, registry, monitoring, time.Millisecond)

	conn := NewConnection(newFakeTransport(), identified("u1", "alice"), 1)
	registry.Add(conn)

	broadcaster.Broadcast()
	broadcaster.Broadcast()

	req.Len(queued(conn), 1)
	req.Equal(uint64(1), monitoring.GetLatest().FramesDropped)
}

func TestPresenceBroadcaster_Empty_List(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	broadcaster := NewPresenceBroadcaster(log, registry, observability.NewMonitoringManager(log), time.Millisecond)
	anonymous := NewConnection(newFakeTransport(), nil, 2)
	registry.Add(anonymous)

	broadcaster.Broadcast()

	frames := queued(anonymous)
	req.Len(frames, 1)
	req.JSONEq(`{"online":[]}`, string(frames[0]))
}

func TestPresenceBroadcaster_Last_Frame_Is_Latest_Snapshot(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	registry := NewRegistry()
	broadcaster := NewPresenceBroadcaster(log, registry, monitoring, 50*time.Millisecond)
	registry.OnChange(broadcaster.Broadcast)

	watcher := NewConnection(newFakeTransport(), identified("u0", "watcher"), 256)
	registry.Add(watcher)
	queued(watcher)

	// Given many users connecting at the same time
	const users = 20
	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registry.Add(NewConnection(newFakeTransport(), identified(fmt.Sprintf("u%02d", i), fmt.Sprintf("user%02d", i)), 256))
		}(i)
	}
	wg.Wait()

	// Then the last frame the watcher got lists everyone
	frames := queued(watcher)
	req.Len(frames, users)
	var last domain.PresenceSnapshot
	req.NoError(json.Unmarshal(frames[len(frames)-1], &last))
	req.Len(last.Online, users+1)
}
