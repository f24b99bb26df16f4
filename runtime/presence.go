package runtime

import (
	"chat-relay/observability"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PresenceBroadcaster pushes the online list to every live connection.
// It is subscribed to the registry, so every add and removal triggers one broadcast.
type PresenceBroadcaster struct {
	// mu keeps snapshots enqueued in the order they were taken
	mu         sync.Mutex
	log        *slog.Logger
	registry   *Registry
	monitoring *observability.MonitoringManager
	timeout    time.Duration
}

func NewPresenceBroadcaster(log *slog.Logger, registry *Registry,
	monitoring *observability.MonitoringManager, timeout time.Duration) *PresenceBroadcaster {
	return &PresenceBroadcaster{log: log, registry: registry, monitoring: monitoring, timeout: timeout}
}

// Broadcast encodes the current snapshot once and enqueues it on every connection,
// unresolved ones included.
func (p *PresenceBroadcaster) Broadcast() {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot, targets := p.registry.snapshotAndTargets()
	frame, err := json.Marshal(snapshot)
	if err != nil {
		p.log.Error("Unable to encode presence", "error", err)
		return
	}
	p.monitoring.IncrPresenceBroadcasts()

	for _, conn := range targets {
		if !conn.Send(frame, p.timeout) {
			p.monitoring.IncrFramesDropped()
			p.log.Warn("Presence frame dropped", "connection_id", conn.ID())
		}
	}
	p.log.Debug(fmt.Sprintf("Presence sent to %d connection(s)", len(targets)), "online", len(snapshot.Online))
}
