package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory transport. Frames pushed on inbound are read by
// the session, frames written by the session land on written.
type fakeTransport struct {
	inbound   chan []byte
	written   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	pongFn   func()
	autoPong bool
	pingErr  error
	pings    int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		written: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-f.inbound:
		return frame, nil
	case <-f.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) WriteFrame(_ context.Context, data []byte) error {
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	case f.written <- data:
		return nil
	}
}

func (f *fakeTransport) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.pingErr != nil {
		return f.pingErr
	}
	if f.autoPong && f.pongFn != nil {
		go f.pongFn()
	}
	return nil
}

func (f *fakeTransport) OnPong(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pongFn = fn
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) RemoteAddr() string {
	return "pipe"
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) send(t *testing.T, v any) {
	t.Helper()
	frame, err := json.Marshal(v)
	require.NoError(t, err)
	f.inbound <- frame
}

// nextMessage skips presence frames and returns the next message frame.
func (f *fakeTransport) nextMessage(t *testing.T) map[string]any {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case frame := <-f.written:
			var decoded map[string]any
			require.NoError(t, json.Unmarshal(frame, &decoded))
			if _, isPresence := decoded["online"]; isPresence {
				continue
			}
			return decoded
		case <-timeout:
			t.Fatal("no message frame received")
			return nil
		}
	}
}

// noMessage asserts that no message frame is written within wait.
func (f *fakeTransport) noMessage(t *testing.T, wait time.Duration) {
	t.Helper()
	timeout := time.After(wait)
	for {
		select {
		case frame := <-f.written:
			var decoded map[string]any
			require.NoError(t, json.Unmarshal(frame, &decoded))
			if _, isPresence := decoded["online"]; !isPresence {
				t.Fatalf("unexpected message frame %s", frame)
			}
		case <-timeout:
			return
		}
	}
}

// queued drains the frames waiting in a connection queue that has no writer.
func queued(conn *Connection) [][]byte {
	var frames [][]byte
	for {
		select {
		case frame := <-conn.outgoing:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

// tokenResolver resolves tokens from a fixed table.
type tokenResolver map[string]domain.Identity

func (r tokenResolver) Resolve(credential string) (domain.Identity, error) {
	identity, ok := r[credential]
	if !ok {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	return identity, nil
}

func identified(userID, username string) *domain.Identity {
	return &domain.Identity{UserID: userID, Username: username}
}
