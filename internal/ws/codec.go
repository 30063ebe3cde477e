package ws

import "encoding/json"

// Envelope is the tagged wire message exchanged over the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Wire discriminants. The server pushes users and mail; the client only
// ever sends mail.
const (
	TypeUsers = "users"
	TypeMail  = "mail"
)

// Encode wraps content in an Envelope and serializes it for the wire.
func Encode(msgType string, content any) ([]byte, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Content: raw})
}

// Decode parses a wire frame. Malformed frames yield nil and are dropped
// by the caller; decoding never panics or returns an error.
func Decode(data []byte) *Envelope {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	if env.Type == "" {
		return nil
	}
	return &env
}
