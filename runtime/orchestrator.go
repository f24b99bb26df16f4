// Package runtime holds the presence and delivery core: the connection registry,
// the liveness monitor, the presence broadcaster and the message router.
// It wires them around transports without knowing how frames travel.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	BufferSize      int
	RequireIdentity bool
}

type Orchestrator struct {
	log        *slog.Logger
	config     Config
	supervisor contract.ISupervisor
	registry   *Registry
	router     *Router
	resolver   contract.IIdentityResolver
	monitoring *observability.MonitoringManager
}

// NewOrchestrator subscribes the presence broadcaster to the registry.
func NewOrchestrator(log *slog.Logger, config Config, supervisor contract.ISupervisor,
	registry *Registry, router *Router, presence *PresenceBroadcaster,
	resolver contract.IIdentityResolver, monitoring *observability.MonitoringManager) *Orchestrator {
	registry.OnChange(presence.Broadcast)
	return &Orchestrator{
		log:        log,
		config:     config,
		supervisor: supervisor,
		registry:   registry,
		router:     router,
		resolver:   resolver,
		monitoring: monitoring,
	}
}

// Connect runs a session until the transport fails or ctx is cancelled.
// The credential is resolved before the connection is registered. An unresolved
// connection is tracked but never listed nor routed, unless identities are
// required, in which case the transport is closed and ErrUnauthenticated returned.
func (o *Orchestrator) Connect(ctx context.Context, transport contract.Transport, credential string) error {
	var identity *domain.Identity
	resolved, err := o.resolver.Resolve(credential)
	switch {
	case err == nil:
		identity = &resolved
	case o.config.RequireIdentity:
		o.monitoring.IncrConnectionsRejected()
		_ = transport.Close()
		return fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	default:
		o.log.Debug("Connection without identity", "remote_addr", transport.RemoteAddr(), "error", err)
	}

	conn := NewConnection(transport, identity, o.config.BufferSize)
	connCtx, cancel := context.WithCancel(ctx)
	stopClose := context.AfterFunc(connCtx, func() { _ = conn.Close() })

	monitor := NewLivenessMonitor(o.log, conn, o.config.PingInterval, o.config.PongTimeout, o.evict)
	transport.OnPong(func() {
		conn.touchPong()
		monitor.Pong()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := conn.writeLoop(connCtx); err != nil {
			o.log.Debug("Write failed", "connection_id", conn.ID(), "error", err)
		}
	}()

	o.monitoring.ConnectionOpened()
	o.registry.Add(conn)
	o.log.Info("Connection opened", "connection_id", conn.ID(), "user_id", userID(conn))
	o.supervisor.Start(connCtx, monitor)

	defer func() {
		cancel()
		stopClose()
		_ = conn.Close()
		o.registry.Remove(conn)
		wg.Wait()
		o.monitoring.ConnectionClosed()
		o.log.Info("Connection closed", "connection_id", conn.ID(), "user_id", userID(conn))
	}()

	for {
		frame, err := transport.ReadFrame(connCtx)
		if err != nil {
			o.log.Debug("Read ended", "connection_id", conn.ID(), "error", err)
			return nil
		}
		o.handleFrame(connCtx, conn, frame)
	}
}

// handleFrame decodes and routes one frame. Nothing is ever sent back to the sender.
func (o *Orchestrator) handleFrame(ctx context.Context, conn *Connection, frame []byte) {
	var in domain.InboundMessage
	if err := json.Unmarshal(frame, &in); err != nil {
		o.monitoring.IncrMessagesRejected()
		o.log.Debug("Frame dropped", "connection_id", conn.ID(), "error", fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err))
		return
	}

	_, err := o.router.Route(ctx, conn, in)
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrPersistence):
		o.log.Error("Message not delivered", "connection_id", conn.ID(), "error", err)
	default:
		o.monitoring.IncrMessagesRejected()
		o.log.Debug("Message dropped", "connection_id", conn.ID(), "error", err)
	}
}

// evict is called by the liveness monitor of a dead connection.
func (o *Orchestrator) evict(conn *Connection) {
	o.monitoring.IncrEvictions()
	o.log.Info("Evicting unresponsive connection", "connection_id", conn.ID(), "user_id", userID(conn))
	_ = conn.Close()
	o.registry.Remove(conn)
}

// CloseAll closes every live connection. Their sessions then unwind on their own.
func (o *Orchestrator) CloseAll() {
	for _, conn := range o.registry.All() {
		_ = conn.Close()
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

func userID(conn *Connection) string {
	identity, _ := conn.Identity()
	return identity.UserID
}
