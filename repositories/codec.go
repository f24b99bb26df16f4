package repositories

import (
	"chat-relay/domain"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored with the protobuf wire format so that they stay readable
// by any protobuf tooling:
//
//	message Message { string id = 1; string sender = 2; string recipient = 3;
//	                  string text = 4; string file = 5; int64 created_at = 6; }
//	message User    { string id = 1; string username = 2; string password_hash = 3;
//	                  int64 created_at = 4; }
const (
	messageID        protowire.Number = 1
	messageSender    protowire.Number = 2
	messageRecipient protowire.Number = 3
	messageText      protowire.Number = 4
	messageFile      protowire.Number = 5
	messageCreatedAt protowire.Number = 6

	userID           protowire.Number = 1
	userUsername     protowire.Number = 2
	userPasswordHash protowire.Number = 3
	userCreatedAt    protowire.Number = 4
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(t.UnixNano()))
}

// DecodeMessage decodes a value stored under a "msg:" key.
func DecodeMessage(b []byte) (domain.Message, error) {
	return unmarshalMessage(b)
}

// DecodeUser decodes a value stored under a "user:" key.
func DecodeUser(b []byte) (domain.User, error) {
	return unmarshalUser(b)
}

func marshalMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, messageID, m.ID)
	b = appendString(b, messageSender, m.Sender)
	b = appendString(b, messageRecipient, m.Recipient)
	b = appendString(b, messageText, m.Text)
	b = appendString(b, messageFile, m.File)
	b = appendTime(b, messageCreatedAt, m.CreatedAt)
	return b
}

func unmarshalMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := consumeFields(b, func(num protowire.Number, s string, v uint64) {
		switch num {
		case messageID:
			m.ID = s
		case messageSender:
			m.Sender = s
		case messageRecipient:
			m.Recipient = s
		case messageText:
			m.Text = s
		case messageFile:
			m.File = s
		case messageCreatedAt:
			m.CreatedAt = time.Unix(0, int64(v)).UTC()
		}
	})
	return m, err
}

func marshalUser(u domain.User) []byte {
	var b []byte
	b = appendString(b, userID, u.ID)
	b = appendString(b, userUsername, u.Username)
	b = appendString(b, userPasswordHash, u.PasswordHash)
	b = appendTime(b, userCreatedAt, u.CreatedAt)
	return b
}

func unmarshalUser(b []byte) (domain.User, error) {
	var u domain.User
	err := consumeFields(b, func(num protowire.Number, s string, v uint64) {
		switch num {
		case userID:
			u.ID = s
		case userUsername:
			u.Username = s
		case userPasswordHash:
			u.PasswordHash = s
		case userCreatedAt:
			u.CreatedAt = time.Unix(0, int64(v)).UTC()
		}
	})
	return u, err
}

// consumeFields walks a record and hands every string or varint field to fn.
// Unknown field types are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, s string, v uint64)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("record tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			fn(num, s, 0)
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			fn(num, "", v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
