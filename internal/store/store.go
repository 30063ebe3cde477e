// Package store holds the client's single reactive state container.
// All mutation goes through reducer methods that work on a private copy
// of the state and swap it in atomically; readers always observe a
// consistent snapshot and shared substructures are never written to.
package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/meowtec/LANSend/internal/model"
)

// Channel is the conversation history with one peer. There is at most
// one channel per peer id; mails keep arrival/send order, which for
// optimistic sends is not timestamp order.
type Channel struct {
	PeerID string       `json:"peer_id"`
	Unread int          `json:"unread"`
	Mails  []model.Mail `json:"mails"`
}

// AppState is the top-level aggregate. Fields tagged "-" are transient
// UI state and never reach the persisted snapshot.
type AppState struct {
	Online        bool                  `json:"online"`
	MyInfo        *model.User           `json:"my_info"`
	UserDirectory map[string]model.User `json:"user_directory"`
	PresentUsers  []model.User          `json:"present_users"`
	Channels      []Channel             `json:"channels"`

	OpenChatPeerID    string             `json:"-"`
	ShowProfileEditor bool               `json:"-"`
	UploadProgress    map[string]float64 `json:"-"`
	PendingLongText   map[string]string  `json:"-"`
}

// ProgressFailed is the upload progress sentinel for a failed upload.
const ProgressFailed = -1

// Initial returns an empty state with all maps allocated.
func Initial() AppState {
	return AppState{
		UserDirectory:   make(map[string]model.User),
		UploadProgress:  make(map[string]float64),
		PendingLongText: make(map[string]string),
	}
}

func (s AppState) clone() AppState {
	out := s
	out.UserDirectory = maps.Clone(s.UserDirectory)
	out.PresentUsers = slices.Clone(s.PresentUsers)
	out.Channels = make([]Channel, len(s.Channels))
	for i, ch := range s.Channels {
		ch.Mails = slices.Clone(ch.Mails)
		out.Channels[i] = ch
	}
	out.UploadProgress = maps.Clone(s.UploadProgress)
	out.PendingLongText = maps.Clone(s.PendingLongText)
	return out
}

// normalize repairs a state loaded from disk: nil maps become empty and
// transient fields reset.
func (s *AppState) normalize() {
	if s.UserDirectory == nil {
		s.UserDirectory = make(map[string]model.User)
	}
	s.OpenChatPeerID = ""
	s.ShowProfileEditor = false
	s.UploadProgress = make(map[string]float64)
	s.PendingLongText = make(map[string]string)
}

// Store is the process-wide state container. One instance is built at
// startup and handed to every collaborator.
type Store struct {
	mu      sync.Mutex
	state   AppState
	version uint64
	subs    []func(AppState)

	curMemo    CurrentChannelInfo
	curVersion uint64
	curValid   bool

	unreadMemo    map[string]int
	unreadVersion uint64
}

// New returns a store holding the initial empty state.
func New() *Store {
	return NewFrom(Initial())
}

// NewFrom returns a store rehydrated from a snapshot.
func NewFrom(state AppState) *Store {
	state.normalize()
	return &Store{state: state}
}

// State returns the current snapshot. The copy-on-write discipline makes
// it safe to read without further locking.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version increments on every reducer application.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers fn to run after every state change. Callbacks run
// outside the store lock, in dispatch order.
func (s *Store) Subscribe(fn func(AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// dispatch is the only write path: clone, mutate the clone, swap, notify.
// The draft never escapes the reducer body.
func (s *Store) dispatch(mutate func(*AppState)) {
	s.mu.Lock()
	next := s.state.clone()
	mutate(&next)
	s.state = next
	s.version++
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
