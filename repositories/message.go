package repositories

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.IMessageRepository = MessageRepository{}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository builds the store. A non-nil limitMessages caps
// FindConversation to the most recent messages.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// conversationPrefix is the same for (a, b) and (b, a). Each id is length
// prefixed, so an id containing ':' can never extend another pair's prefix.
func conversationPrefix(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("msg:%d:%s:%d:%s:", len(userA), userA, len(userB), userB)
}

// between reports whether the message was exchanged by exactly userA and userB.
func between(message domain.Message, userA, userB string) bool {
	return (message.Sender == userA && message.Recipient == userB) ||
		(message.Sender == userB && message.Recipient == userA)
}

// Create persists a message in BadgerDB and returns it with its assigned ID.
// The key is formatted as "msg:{len}:{low_user}:{len}:{high_user}:{timestamp_padded}:{uuid}" to:
//  1. Keep both directions of a conversation under one prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using the UUID as a tie breaker if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if message.Sender == "" || message.Recipient == "" || !message.HasContent() {
		return domain.Message{}, fmt.Errorf("incomplete message from %q to %q", message.Sender, message.Recipient)
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	key := fmt.Sprintf("%s%019d:%s",
		conversationPrefix(message.Sender, message.Recipient),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), marshalMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// FindConversation returns the messages exchanged between userA and userB,
// oldest first. The scan runs backwards from the newest key so that the
// configured limit keeps the most recent messages. Records of any other pair
// are skipped.
func (m MessageRepository) FindConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(userA, userB))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// '~' sorts after every digit, so this lands on the newest message
		seekKey := append(slices.Clone(prefix), '~')
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := unmarshalMessage(value)
				if err != nil {
					return err
				}
				if !between(message, userA, userB) {
					m.log.Warn("Foreign record skipped", "message_id", message.ID)
					return nil
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}
