package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const recentDeliveriesSize = 20

// RecentDelivery is one routed message as shown on the debug endpoint.
type RecentDelivery struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Deliveries int    `json:"deliveries"`
	Timestamp  string `json:"timestamp"`
}

// RelayStats aggregates the relay counters plus a few Go runtime metrics.
type RelayStats struct {
	ActiveConnections   int64            `json:"active_connections"`
	ConnectionsOpened   uint64           `json:"connections_opened"`
	ConnectionsRejected uint64           `json:"connections_rejected"`
	Evictions           uint64           `json:"evictions"`
	MessagesRouted      uint64           `json:"messages_routed"`
	MessagesRejected    uint64           `json:"messages_rejected"`
	PersistenceFailures uint64           `json:"persistence_failures"`
	FramesDropped       uint64           `json:"frames_dropped"`
	PresenceBroadcasts  uint64           `json:"presence_broadcasts"`
	AllocMemMb          uint64           `json:"alloc_mem_mb"`
	NumGC               uint32           `json:"num_gc"`
	NumGoroutine        int              `json:"num_goroutine"`
	ProcessRSSBytes     uint64           `json:"process_rss_bytes"`
	ProcessCPUPercent   float64          `json:"process_cpu_percent"`
	RecentDeliveries    []RecentDelivery `json:"recent_deliveries"`
}

// MonitoringManager collects relay telemetry. Counters are atomic so the hot
// path never takes the lock; the lock only guards the recent deliveries list.
type MonitoringManager struct {
	log *slog.Logger
	mu  sync.RWMutex

	recent     []RecentDelivery
	processRSS uint64
	processCPU float64

	activeConnections   atomic.Int64
	connectionsOpened   atomic.Uint64
	connectionsRejected atomic.Uint64
	evictions           atomic.Uint64
	messagesRouted      atomic.Uint64
	messagesRejected    atomic.Uint64
	persistenceFailures atomic.Uint64
	framesDropped       atomic.Uint64
	presenceBroadcasts  atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{
		log:    log,
		recent: make([]RecentDelivery, 0, recentDeliveriesSize),
	}
}

func (mm *MonitoringManager) ConnectionOpened() {
	mm.connectionsOpened.Add(1)
	mm.activeConnections.Add(1)
}

func (mm *MonitoringManager) ConnectionClosed() {
	mm.activeConnections.Add(-1)
}

func (mm *MonitoringManager) IncrConnectionsRejected() {
	mm.connectionsRejected.Add(1)
}

func (mm *MonitoringManager) IncrEvictions() {
	mm.evictions.Add(1)
}

func (mm *MonitoringManager) IncrMessagesRejected() {
	mm.messagesRejected.Add(1)
}

func (mm *MonitoringManager) IncrPersistenceFailures() {
	mm.persistenceFailures.Add(1)
}

func (mm *MonitoringManager) IncrFramesDropped() {
	mm.framesDropped.Add(1)
}

func (mm *MonitoringManager) IncrPresenceBroadcasts() {
	mm.presenceBroadcasts.Add(1)
}

// MessageRouted counts a persisted message and keeps it in the recent list,
// newest first.
func (mm *MonitoringManager) MessageRouted(id, sender, recipient string, deliveries int) {
	mm.messagesRouted.Add(1)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	delivery := RecentDelivery{
		ID:         id,
		Sender:     sender,
		Recipient:  recipient,
		Deliveries: deliveries,
		Timestamp:  time.Now().Format("15:04:05"),
	}
	mm.recent = append([]RecentDelivery{delivery}, mm.recent...)
	if len(mm.recent) > recentDeliveriesSize {
		mm.recent = mm.recent[:recentDeliveriesSize]
	}
}

// SetProcessStats stores the last process sample taken by the stats worker.
func (mm *MonitoringManager) SetProcessStats(rss uint64, cpuPercent float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.processRSS = rss
	mm.processCPU = cpuPercent
}

func (mm *MonitoringManager) GetLatest() RelayStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.mu.RLock()
	recent := make([]RecentDelivery, len(mm.recent))
	copy(recent, mm.recent)
	rss, cpuPercent := mm.processRSS, mm.processCPU
	mm.mu.RUnlock()

	mm.log.Debug("🔍 GetLatest() called", "active_connections", mm.activeConnections.Load())
	return RelayStats{
		ActiveConnections:   mm.activeConnections.Load(),
		ConnectionsOpened:   mm.connectionsOpened.Load(),
		ConnectionsRejected: mm.connectionsRejected.Load(),
		Evictions:           mm.evictions.Load(),
		MessagesRouted:      mm.messagesRouted.Load(),
		MessagesRejected:    mm.messagesRejected.Load(),
		PersistenceFailures: mm.persistenceFailures.Load(),
		FramesDropped:       mm.framesDropped.Load(),
		PresenceBroadcasts:  mm.presenceBroadcasts.Load(),
		AllocMemMb:          m.Alloc / 1024 / 1024,
		NumGC:               m.NumGC,
		NumGoroutine:        runtime.NumGoroutine(),
		ProcessRSSBytes:     rss,
		ProcessCPUPercent:   cpuPercent,
		RecentDeliveries:    recent,
	}
}
