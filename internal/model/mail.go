package model

import (
	"encoding/json"
	"fmt"
)

// MailKind discriminates the mail payload.
type MailKind string

const (
	KindText     MailKind = "text"
	KindLongText MailKind = "long_text"
	KindFile     MailKind = "file"
)

// MailBody is the typed payload of a mail. Content is a plain string for
// text mail and a FileObject for file and long_text mail. The kind never
// changes once the mail exists; only a pre-send file content may be
// swapped for the confirmed one.
type MailBody struct {
	Kind MailKind
	Text string
	File *FileObject
}

type mailBodyWire struct {
	Type    MailKind        `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (b MailBody) MarshalJSON() ([]byte, error) {
	var content any
	if b.Kind == KindText {
		content = b.Text
	} else {
		content = b.File
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(mailBodyWire{Type: b.Kind, Content: raw})
}

func (b *MailBody) UnmarshalJSON(data []byte) error {
	var wire mailBodyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	body := MailBody{Kind: wire.Type}
	switch wire.Type {
	case KindText:
		if err := json.Unmarshal(wire.Content, &body.Text); err != nil {
			return fmt.Errorf("text mail content: %w", err)
		}
	case KindLongText, KindFile:
		var obj FileObject
		if err := json.Unmarshal(wire.Content, &obj); err != nil {
			return fmt.Errorf("file mail content: %w", err)
		}
		body.File = &obj
	default:
		return fmt.Errorf("unknown mail kind %q", wire.Type)
	}
	*b = body
	return nil
}

// MailOutline is the wire form of an outgoing mail body. File and
// long_text mail reference the uploaded file by its server id.
type MailOutline struct {
	Type    MailKind `json:"type"`
	Content string   `json:"content"`
}

// MailSend is a client-authored mail as transmitted to the server.
type MailSend struct {
	ID        string      `json:"id"`
	Receivers []string    `json:"receivers"`
	Data      MailOutline `json:"data"`
}

// MailReceive is a server-authored mail delivered over the socket.
type MailReceive struct {
	ID         string   `json:"id"`
	CreateDate int64    `json:"create_date"` // unix milliseconds
	Sender     string   `json:"sender"`
	Data       MailBody `json:"data"`
}

// Mail is one entry of a channel history. Incoming mail carries Sender
// and CreateDate; outgoing mail carries Receivers and a client id with
// the pre_ prefix.
type Mail struct {
	ID         string   `json:"id"`
	CreateDate int64    `json:"create_date,omitempty"`
	Sender     string   `json:"sender,omitempty"`
	Receivers  []string `json:"receivers,omitempty"`
	Data       MailBody `json:"data"`
}

// Incoming reports whether the mail was authored by a peer.
func (m Mail) Incoming() bool {
	return m.Sender != ""
}

// ChannelPeers lists the peer ids whose channels this mail belongs to.
func (m Mail) ChannelPeers() []string {
	if m.Incoming() {
		return []string{m.Sender}
	}
	return m.Receivers
}

// FromReceive converts a wire mail into a channel entry.
func FromReceive(r MailReceive) Mail {
	return Mail{
		ID:         r.ID,
		CreateDate: r.CreateDate,
		Sender:     r.Sender,
		Data:       r.Data,
	}
}
