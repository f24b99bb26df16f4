package domain

import (
	"chat-relay/errors"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInboundMessage_Validate(t *testing.T) {
	file := &InboundFile{Name: "cat.png", Data: "aGVsbG8="}
	tests := []struct {
		name    string
		msg     InboundMessage
		wantErr error
	}{
		{"Text only", InboundMessage{Recipient: "u2", Text: "hi"}, nil},
		{"File only", InboundMessage{Recipient: "u2", File: file}, nil},
		{"Text and file", InboundMessage{Recipient: "u2", Text: "hi", File: file}, nil},
		{"Missing recipient", InboundMessage{Text: "hi"}, errors.ErrMissingRecipient},
		{"Missing recipient and content", InboundMessage{}, errors.ErrMissingRecipient},
		{"Nothing to send", InboundMessage{Recipient: "u2"}, errors.ErrNothingToSend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInboundFile_Decode(t *testing.T) {
	req := require.New(t)
	encoded := base64.StdEncoding.EncodeToString([]byte("hello"))

	// Given a data URL payload as sent by browsers
	data, err := InboundFile{Name: "a.txt", Data: "data:text/plain;base64," + encoded}.Decode()
	req.NoError(err)
	req.Equal([]byte("hello"), data)

	// Given a bare base64 payload
	data, err = InboundFile{Name: "a.txt", Data: encoded}.Decode()
	req.NoError(err)
	req.Equal([]byte("hello"), data)

	// Given garbage
	_, err = InboundFile{Name: "a.txt", Data: "data:,%%%"}.Decode()
	req.ErrorIs(err, errors.ErrInvalidFilePayload)

	// Given nothing after the comma
	_, err = InboundFile{Name: "a.txt", Data: "data:text/plain;base64,"}.Decode()
	req.ErrorIs(err, errors.ErrInvalidFilePayload)
}
