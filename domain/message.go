// Package domain contains core concepts of the chat system.
// This file defines Message records and the frames exchanged with clients.
// Messages are immutable once the store has assigned their ID.
package domain

import (
	"time"
)

// Message represents a persisted direct message between two users.
type Message struct {
	ID        string
	Sender    string
	Recipient string
	Text      string
	File      string // generated filename, empty when no file is attached
	CreatedAt time.Time
}

// HasContent reports whether the message carries a text or a file.
func (m Message) HasContent() bool {
	return m.Text != "" || m.File != ""
}

// MessageFrame is pushed to every live connection of the recipient.
// File is a pointer so that an absent file is encoded as null.
type MessageFrame struct {
	Text      string  `json:"text,omitempty"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	File      *string `json:"file"`
	ID        string  `json:"_id"`
}

func ToMessageFrame(m Message) MessageFrame {
	frame := MessageFrame{
		Text:      m.Text,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		ID:        m.ID,
	}
	if m.File != "" {
		file := m.File
		frame.File = &file
	}
	return frame
}

// HistoryEntry is the shape returned by the conversation history endpoint.
type HistoryEntry struct {
	ID        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Text      string    `json:"text,omitempty"`
	File      *string   `json:"file"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToHistoryEntry(m Message) HistoryEntry {
	frame := ToMessageFrame(m)
	return HistoryEntry{
		ID:        m.ID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Text:      m.Text,
		File:      frame.File,
		CreatedAt: m.CreatedAt,
	}
}
