package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_Conversation_Both_Directions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	// Given a conversation written from both sides
	at := time.Now().UTC()
	written := []domain.Message{
		{Sender: "u1", Recipient: "u2", Text: "hi", CreatedAt: at},
		{Sender: "u2", Recipient: "u1", Text: "hello", CreatedAt: at.Add(time.Second)},
		{Sender: "u1", Recipient: "u2", File: "1700000000000.png", CreatedAt: at.Add(2 * time.Second)},
	}
	for i, m := range written {
		stored, err := repository.Create(ctx, m)
		req.NoError(err)
		req.NotEmpty(stored.ID)
		written[i] = stored
	}
	// And a message in another conversation
	_, err := repository.Create(ctx, domain.Message{Sender: "u1", Recipient: "u3", Text: "unrelated"})
	req.NoError(err)

	// When the conversation is read from either side
	fromU1, err := repository.FindConversation(ctx, "u1", "u2")
	req.NoError(err)
	fromU2, err := repository.FindConversation(ctx, "u2", "u1")
	req.NoError(err)

	// Then both see the same messages in chronological order
	req.Equal(written, fromU1)
	req.Equal(fromU1, fromU2)
}

func Test_Record_Conversation_And_Limit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	limit := 2
	repository := NewMessageRepository(openDB(t), slog.Default(), &limit)

	at := time.Now().UTC()
	for i, text := range []string{"one", "two", "three"} {
		_, err := repository.Create(ctx, domain.Message{
			Sender: "u1", Recipient: "u2", Text: text, CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	fetched, err := repository.FindConversation(ctx, "u1", "u2")
	req.NoError(err)
	req.Len(fetched, limit)
	req.Equal("two", fetched[0].Text)
	req.Equal("three", fetched[1].Text)
}

func Test_Create_Assigns_ID_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	before := time.Now().UTC()
	stored, err := repository.Create(context.Background(), domain.Message{Sender: "u1", Recipient: "u2", Text: "hi"})
	req.NoError(err)
	req.NotEmpty(stored.ID)
	req.False(stored.CreatedAt.Before(before))
}

func Test_Create_Rejects_Incomplete_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	_, err := repository.Create(context.Background(), domain.Message{Sender: "u1", Recipient: "u2"})
	req.Error(err)
	_, err = repository.Create(context.Background(), domain.Message{Sender: "u1", Text: "hi"})
	req.Error(err)
}

func Test_Create_Honors_Cancelled_Context(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repository.Create(ctx, domain.Message{Sender: "u1", Recipient: "u2", Text: "hi"})
	req.ErrorIs(err, context.Canceled)
}

func Test_Empty_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	fetched, err := repository.FindConversation(context.Background(), "u1", "u2")
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Colon_In_Recipient_Stays_Out_Of_Other_Conversations(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	// Given a real conversation between aaaa and bbbb
	_, err := repository.Create(ctx, domain.Message{Sender: "aaaa", Recipient: "bbbb", Text: "real"})
	req.NoError(err)
	// And a third user addressing a recipient shaped like that pair
	_, err = repository.Create(ctx, domain.Message{Sender: "mmmm", Recipient: "aaaa:bbbb:x", Text: "forged"})
	req.NoError(err)

	// When the pair reads its history
	fetched, err := repository.FindConversation(ctx, "aaaa", "bbbb")

	// Then only their own message is there
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("real", fetched[0].Text)
}

func Test_Foreign_Record_Under_Prefix_Is_Skipped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	_, err := repository.Create(ctx, domain.Message{Sender: "u1", Recipient: "u2", Text: "real"})
	req.NoError(err)

	// Given a record of another pair written under the u1/u2 prefix
	foreign := domain.Message{ID: "x", Sender: "u3", Recipient: "u4", Text: "foreign", CreatedAt: time.Now().UTC()}
	key := conversationPrefix("u1", "u2") + "0000000000000000001:x"
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), marshalMessage(foreign))
	}))

	// Then the conversation ignores it
	fetched, err := repository.FindConversation(ctx, "u2", "u1")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("real", fetched[0].Text)
}
