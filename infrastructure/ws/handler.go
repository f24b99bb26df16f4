package ws

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Connector runs one session over an accepted transport.
type Connector interface {
	Connect(ctx context.Context, transport contract.Transport, credential string) error
}

// Handler upgrades GET /ws and hands the connection to the relay.
// The session token is read from the "token" cookie of the handshake.
type Handler struct {
	log           *slog.Logger
	connector     Connector
	upgrader      websocket.Upgrader
	writeTimeout  time.Duration
	maxFrameBytes int64
}

func NewHandler(log *slog.Logger, connector Connector, allowedOrigin string,
	writeTimeout time.Duration, maxFrameBytes int64) *Handler {
	return &Handler{
		log:       log,
		connector: connector,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		writeTimeout:  writeTimeout,
		maxFrameBytes: maxFrameBytes,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var credential string
	if cookie, err := r.Cookie(auth.TokenCookie); err == nil {
		credential = cookie.Value
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		h.log.Warn("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	err = h.connector.Connect(r.Context(), NewTransport(conn, h.writeTimeout, h.maxFrameBytes), credential)
	if stderrors.Is(err, errors.ErrUnauthenticated) {
		h.log.Info("Websocket refused", "remote_addr", r.RemoteAddr, "error", err)
	} else if err != nil {
		h.log.Error("Websocket session failed", "remote_addr", r.RemoteAddr, "error", err)
	}
}
