package main

import (
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

// Session holds the login cookie and runs websocket connections with it.
type Session struct {
	log       *slog.Logger
	serverURL string
	out       io.Writer
	http      *resty.Client
	token     string

	mu     sync.Mutex
	online map[string]string // user id -> username
}

func NewSession(log *slog.Logger, serverURL string, out io.Writer) *Session {
	return &Session{
		log:       log,
		serverURL: strings.TrimSuffix(serverURL, "/"),
		out:       out,
		http:      resty.New().SetBaseURL(serverURL),
		online:    make(map[string]string),
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type idResponse struct {
	ID string `json:"id"`
}

// Authenticate logs in and registers the account on the first run.
func (s *Session) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	body := credentials{Username: username, Password: password}
	var created idResponse
	resp, err := s.http.R().SetContext(ctx).SetBody(body).SetResult(&created).Post("/login")
	if err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		s.log.Info("Unknown credentials, registering", "username", username)
		resp, err = s.http.R().SetContext(ctx).SetBody(body).SetResult(&created).Post("/register")
		if err != nil {
			return domain.Identity{}, fmt.Errorf("register: %w", err)
		}
	}
	if resp.IsError() {
		return domain.Identity{}, fmt.Errorf("authentication failed: %s %s", resp.Status(), resp.String())
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "token" {
			s.token = cookie.Value
		}
	}
	if s.token == "" {
		return domain.Identity{}, fmt.Errorf("server did not set the token cookie")
	}
	return domain.Identity{UserID: created.ID, Username: username}, nil
}

// Run opens one websocket connection and returns when it breaks or ctx is done.
func (s *Session) Run(ctx context.Context, lines <-chan string) error {
	header := http.Header{}
	header.Set("Cookie", "token="+s.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, websocketURL(s.serverURL), header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(conn) }()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case err := <-readErr:
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			frame, err := ParseLine(line)
			if err != nil {
				fmt.Fprintln(s.out, color.FgRed.Render(err.Error()))
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (s *Session) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.display(data)
	}
}

// display prints a presence update or a message.
func (s *Session) display(data []byte) {
	var presence domain.PresenceSnapshot
	if err := json.Unmarshal(data, &presence); err == nil && presence.Online != nil {
		s.mu.Lock()
		s.online = make(map[string]string, len(presence.Online))
		names := make([]string, 0, len(presence.Online))
		for _, user := range presence.Online {
			s.online[user.UserID] = user.Username
			names = append(names, fmt.Sprintf("%s (%s)", user.Username, user.UserID))
		}
		s.mu.Unlock()
		fmt.Fprintln(s.out, color.FgCyan.Render("online: "+strings.Join(names, ", ")))
		return
	}

	var message domain.MessageFrame
	if err := json.Unmarshal(data, &message); err != nil {
		s.log.Debug("Unknown frame", "frame", string(data))
		return
	}
	line := fmt.Sprintf("%s: %s", s.nameOf(message.Sender), message.Text)
	if message.File != nil {
		line += fmt.Sprintf(" [file %s/uploads/%s]", s.serverURL, *message.File)
	}
	fmt.Fprintln(s.out, color.FgGreen.Render(line))
}

func (s *Session) nameOf(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.online[userID]; ok {
		return name
	}
	return userID
}

// ParseLine turns "<recipientId> <text>" into an outbound frame.
func ParseLine(line string) (domain.InboundMessage, error) {
	recipient, text, _ := strings.Cut(strings.TrimSpace(line), " ")
	frame := domain.InboundMessage{Recipient: recipient, Text: strings.TrimSpace(text)}
	if err := frame.Validate(); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("usage: <recipientId> <text> (%w)", err)
	}
	return frame, nil
}

func websocketURL(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		return "wss://" + strings.TrimPrefix(serverURL, "https://") + "/ws"
	case strings.HasPrefix(serverURL, "http://"):
		return "ws://" + strings.TrimPrefix(serverURL, "http://") + "/ws"
	default:
		return "ws://" + serverURL + "/ws"
	}
}
