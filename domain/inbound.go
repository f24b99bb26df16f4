package domain

import (
	"chat-relay/errors"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// InboundMessage is the frame a client sends to address another user.
type InboundMessage struct {
	Recipient string       `json:"recipient" validate:"required"`
	Text      string       `json:"text,omitempty" validate:"required_without=File"`
	File      *InboundFile `json:"file,omitempty"`
}

// InboundFile carries the original name and a base64 payload,
// optionally prefixed like a data URL ("data:image/png;base64,....").
type InboundFile struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Validate checks that the frame names a recipient and carries something to send.
// It returns ErrMissingRecipient or ErrNothingToSend.
func (m InboundMessage) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}
	for _, fieldErr := range validationErrors {
		if fieldErr.Field() == "Recipient" {
			return errors.ErrMissingRecipient
		}
	}
	return errors.ErrNothingToSend
}

// Decode returns the raw bytes of the payload.
func (f InboundFile) Decode() ([]byte, error) {
	payload := f.Data
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload for %q", errors.ErrInvalidFilePayload, f.Name)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFilePayload, err)
	}
	return data, nil
}
