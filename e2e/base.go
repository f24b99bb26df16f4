package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BaseRelaySuite drives a relay started outside the test process.
type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL not set")
	}
}

// Step prints a colorized header for a scenario step
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// User is an account logged in on the relay.
type User struct {
	ID     string
	Name   string
	Client *resty.Client
	Token  string
}

// SignUp registers a fresh account and keeps its cookie
func (s *BaseRelaySuite) SignUp(prefix string) User {
	client := resty.New().SetBaseURL(s.Config.ServerURL).SetTimeout(10 * time.Second)
	name := fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1_000_000_000)
	var created struct {
		ID string `json:"id"`
	}
	resp, err := client.R().
		SetBody(map[string]string{"username": name, "password": "e2ePassw0rd"}).
		SetResult(&created).
		Post("/register")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode(), resp.String())

	var token string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "token" {
			token = cookie.Value
		}
	}
	s.Require().NotEmpty(token, "token cookie missing")
	return User{ID: created.ID, Name: name, Client: client, Token: token}
}

// Dial opens a websocket session for user
func (s *BaseRelaySuite) Dial(user User) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.Config.ServerURL, "http") + "/ws"
	header := http.Header{}
	header.Set("Cookie", "token="+user.Token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().NoError(err, "Failed to open websocket at "+url)
	return conn
}

// ReadUntil reads frames until match accepts one
func (s *BaseRelaySuite) ReadUntil(conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(10 * time.Second)))
	for {
		var frame map[string]any
		s.Require().NoError(conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}

// WithHealth provides a gRPC health client within a contextual test step
func (s *BaseRelaySuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	s.Step(name)
	conn, err := grpc.NewClient(s.Config.HealthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
