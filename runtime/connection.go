package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Connection is one live client session.
// Its identity is fixed at creation and nil when the credential did not resolve.
// Frames reach the transport through a bounded queue drained by a single writer.
type Connection struct {
	id        string
	transport contract.Transport
	identity  *domain.Identity
	outgoing  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	lastPong  atomic.Int64
}

func NewConnection(transport contract.Transport, identity *domain.Identity, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	c := &Connection{
		id:        uuid.NewString(),
		transport: transport,
		identity:  identity,
		outgoing:  make(chan []byte, bufferSize),
		done:      make(chan struct{}),
	}
	c.lastPong.Store(time.Now().UnixNano())
	return c
}

func (c *Connection) ID() string {
	return c.id
}

// Identity returns the attached identity and false for an unresolved connection.
func (c *Connection) Identity() (domain.Identity, bool) {
	if c.identity == nil {
		return domain.Identity{}, false
	}
	return *c.identity, true
}

func (c *Connection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Send enqueues a frame for the writer.
// It waits at most timeout for queue space and returns false when the frame
// was dropped or the connection is closed.
func (c *Connection) Send(frame []byte, timeout time.Duration) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.outgoing <- frame:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.outgoing <- frame:
		return true
	case <-c.done:
		return false
	case <-timer.C:
		return false
	}
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close closes the transport once. Later calls return the first result.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}

func (c *Connection) LastPong() time.Time {
	return time.Unix(0, c.lastPong.Load())
}

func (c *Connection) touchPong() {
	c.lastPong.Store(time.Now().UnixNano())
}

// writeLoop is the only goroutine calling transport.WriteFrame.
// The outgoing channel is never closed; the loop ends with the connection.
func (c *Connection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case frame := <-c.outgoing:
			if err := c.transport.WriteFrame(ctx, frame); err != nil {
				_ = c.Close()
				return err
			}
		}
	}
}
