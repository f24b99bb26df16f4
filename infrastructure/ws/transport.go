package ws

import (
	"chat-relay/contract"
	"context"
	"time"

	"github.com/gorilla/websocket"
)

var _ contract.Transport = (*Transport)(nil)

// Transport adapts a gorilla websocket connection.
// Reads and WriteFrame must each stay on one goroutine; Ping and Close use
// control frames, which gorilla allows concurrently with everything else.
type Transport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewTransport caps inbound frames at maxFrameBytes. A larger frame makes
// ReadFrame fail and gorilla answers it with a 1009 close.
func NewTransport(conn *websocket.Conn, writeTimeout time.Duration, maxFrameBytes int64) *Transport {
	if maxFrameBytes > 0 {
		conn.SetReadLimit(maxFrameBytes)
	}
	return &Transport{conn: conn, writeTimeout: writeTimeout}
}

// ReadFrame returns the next data message. Control frames are handled by
// gorilla while reading.
func (t *Transport) ReadFrame(_ context.Context) ([]byte, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *Transport) WriteFrame(ctx context.Context, data []byte) error {
	if err := t.conn.SetWriteDeadline(t.deadline(ctx)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) Ping(ctx context.Context) error {
	return t.conn.WriteControl(websocket.PingMessage, nil, t.deadline(ctx))
}

// OnPong must be called before the first ReadFrame.
func (t *Transport) OnPong(fn func()) {
	t.conn.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

func (t *Transport) Close() error {
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(t.writeTimeout))
	return t.conn.Close()
}

func (t *Transport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *Transport) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(t.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
