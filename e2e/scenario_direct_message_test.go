package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type testDirectMessageSuite struct {
	BaseRelaySuite
}

func TestDirectMessageSuite(t *testing.T) {
	suite.Run(t, &testDirectMessageSuite{})
}

func (s *testDirectMessageSuite) TestHealth() {
	s.WithHealth("Relay reports SERVING", func(ctx context.Context, client healthpb.HealthClient) {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "chat-relay"})
		s.Require().NoError(err)
		s.Require().Equal(healthpb.HealthCheckResponse_SERVING, resp.Status)
	})
}

func (s *testDirectMessageSuite) TestDirectMessageFlow() {
	alice := s.SignUp("alice")
	bob := s.SignUp("bob")

	s.Step("Both users connect and see each other")
	aliceConn := s.Dial(alice)
	defer aliceConn.Close()
	bobConn := s.Dial(bob)
	defer bobConn.Close()
	s.ReadUntil(aliceConn, listing(bob.ID))

	s.Step("Alice writes to Bob")
	s.Require().NoError(aliceConn.WriteJSON(map[string]any{"recipient": bob.ID, "text": "hi"}))
	frame := s.ReadUntil(bobConn, func(f map[string]any) bool { return f["_id"] != nil })
	s.Require().Equal("hi", frame["text"])
	s.Require().Equal(alice.ID, frame["sender"])
	s.Require().Nil(frame["file"])

	s.Step("The message is in the history")
	var history []map[string]any
	resp, err := bob.Client.R().SetResult(&history).Get("/messages/" + alice.ID)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode())
	s.Require().Len(history, 1)
	s.Require().Equal(frame["_id"], history[0]["_id"])

	s.Step("Bob leaves and Alice is told")
	s.Require().NoError(bobConn.Close())
	s.ReadUntil(aliceConn, func(f map[string]any) bool {
		online, ok := f["online"].([]any)
		return ok && !containsUser(online, bob.ID)
	})
}

func listing(userID string) func(map[string]any) bool {
	return func(f map[string]any) bool {
		online, ok := f["online"].([]any)
		return ok && containsUser(online, userID)
	}
}

func containsUser(online []any, userID string) bool {
	for _, entry := range online {
		if user, ok := entry.(map[string]any); ok && user["userId"] == userID {
			return true
		}
	}
	return false
}
