package runtime

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"sync"
	"time"
)

// LivenessMonitor probes one connection with pings.
//
//	ALIVE --ping--> AWAITING_PONG --pong--> ALIVE
//	                AWAITING_PONG --timeout or ping failure--> DEAD
//
// DEAD is terminal: onDead runs once and the monitor stops.
type LivenessMonitor struct {
	log          *slog.Logger
	conn         *Connection
	pingInterval time.Duration
	pongTimeout  time.Duration
	onDead       func(*Connection)
	pongs        chan struct{}

	mu    sync.Mutex
	state domain.LivenessState
}

func NewLivenessMonitor(log *slog.Logger, conn *Connection, pingInterval, pongTimeout time.Duration,
	onDead func(*Connection)) *LivenessMonitor {
	return &LivenessMonitor{
		log:          log,
		conn:         conn,
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
		onDead:       onDead,
		pongs:        make(chan struct{}, 1),
		state:        domain.Alive,
	}
}

func (m *LivenessMonitor) State() domain.LivenessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *LivenessMonitor) setState(state domain.LivenessState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// Pong records a pong from the peer. It never blocks.
func (m *LivenessMonitor) Pong() {
	select {
	case m.pongs <- struct{}{}:
	default:
	}
}

func (m *LivenessMonitor) Run(ctx context.Context) error {
	switch m.State() {
	case domain.Dead:
		return nil
	case domain.AwaitingPong:
		// restarted after a crash, the pending timer is gone
		m.setState(domain.Alive)
	}

	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	var timer *time.Timer
	var timeout <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if m.State() != domain.Alive {
				continue
			}
			if err := m.conn.transport.Ping(ctx); err != nil {
				m.log.Debug("Ping failed", "connection_id", m.conn.ID(), "error", err)
				m.die()
				return nil
			}
			m.setState(domain.AwaitingPong)
			timer = time.NewTimer(m.pongTimeout)
			timeout = timer.C

		case <-m.pongs:
			if m.State() != domain.AwaitingPong {
				continue
			}
			timer.Stop()
			timeout = nil
			m.setState(domain.Alive)

		case <-timeout:
			m.log.Debug("Pong timeout", "connection_id", m.conn.ID(), "last_pong", m.conn.LastPong())
			m.die()
			return nil
		}
	}
}

func (m *LivenessMonitor) die() {
	m.setState(domain.Dead)
	m.onDead(m.conn)
}
