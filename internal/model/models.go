// Package model defines the entities exchanged with a LANSend server.
package model

import (
	"github.com/google/uuid"
)

// User is a peer on the local network. Identity is assigned by the server
// and bound to the session cookie; the client never invents ids.
type User struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
}

// FileObject describes a file held by the server. Before the upload
// finishes the client renders a local stand-in with IsPreSend set; the
// server's confirmed object replaces it under the same mail id.
type FileObject struct {
	IsPreSend bool   `json:"isPreSend"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
}

// PreIDPrefix marks client-generated ids that have not been confirmed by
// the server yet.
const PreIDPrefix = "pre_"

// NewPreID returns a fresh client-side id for optimistic mail and files.
func NewPreID() string {
	return PreIDPrefix + uuid.NewString()
}
