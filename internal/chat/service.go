// Package chat orchestrates synchronization between a LANSend server and
// the local store: connection lifecycle, the startup snapshot fetch, and
// message composition with optimistic placeholders.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/meowtec/LANSend/internal/api"
	"github.com/meowtec/LANSend/internal/model"
	"github.com/meowtec/LANSend/internal/store"
	"github.com/meowtec/LANSend/internal/ws"
)

// Defaults for the size-threshold branching. A string at or under
// MaxTextLen runes travels inline over the socket; under MaxLongTextLen
// it uploads as a long text; anything bigger uploads as a plain file.
const (
	DefaultMaxTextLen     = 2048
	DefaultMaxLongTextLen = 65536
)

// Config for a Service.
type Config struct {
	WSURL          string
	MaxTextLen     int
	MaxLongTextLen int
	RetryDelay     time.Duration
}

// Service wires the connection manager, the REST client and the store
// together. One instance lives for the whole app session.
type Service struct {
	cfg      Config
	store    *store.Store
	api      *api.Client
	sanitize *bluemonday.Policy

	mu   sync.Mutex
	conn *ws.Conn
}

// NewService validates the config and builds the effect layer. Threshold
// values that break the text < long-text ordering fall back to defaults.
func NewService(cfg Config, st *store.Store, apiClient *api.Client) *Service {
	if cfg.MaxTextLen <= 0 {
		cfg.MaxTextLen = DefaultMaxTextLen
	}
	if cfg.MaxLongTextLen <= cfg.MaxTextLen {
		cfg.MaxTextLen = DefaultMaxTextLen
		cfg.MaxLongTextLen = DefaultMaxLongTextLen
	}
	return &Service{
		cfg:      cfg,
		store:    st,
		api:      apiClient,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Connect opens the websocket connection and wires its events into the
// store. Calling it while connected replaces the previous connection.
func (s *Service) Connect() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	conn := ws.NewConn(s.cfg.WSURL, s.cfg.RetryDelay)
	s.conn = conn
	s.mu.Unlock()

	go s.eventLoop(conn)
	conn.Open()
}

// Disconnect closes the connection for good and marks the store offline.
func (s *Service) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	s.store.SetOnline(false)
}

func (s *Service) eventLoop(conn *ws.Conn) {
	for {
		select {
		case ev := <-conn.Events():
			switch ev := ev.(type) {
			case ws.Opened:
				go s.hydrate()
			case ws.Closed:
				s.store.SetOnline(false)
			case ws.Received:
				s.handleEnvelope(ev.Envelope)
			}
		case <-conn.Done():
			return
		}
	}
}

// hydrate fetches the user roster and own profile in parallel, feeds the
// store, and flips the online flag. A failed fetch is logged but does not
// bring the connection down; the next presence broadcast repairs the
// roster.
func (s *Service) hydrate() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var users []model.User
	var me model.User
	var usersErr, meErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		users, usersErr = s.api.Users(ctx)
	}()
	go func() {
		defer wg.Done()
		me, meErr = s.api.UserInfo(ctx)
	}()
	wg.Wait()

	if usersErr != nil {
		slog.Error("snapshot users fetch failed", "error", usersErr)
	} else {
		s.store.UpdateUsers(users)
	}
	if meErr != nil {
		slog.Error("snapshot user-info fetch failed", "error", meErr)
	} else {
		s.store.UpdateMyInfo(me)
	}
	s.store.SetOnline(true)
}

func (s *Service) handleEnvelope(env ws.Envelope) {
	switch env.Type {
	case ws.TypeUsers:
		var users []model.User
		if err := json.Unmarshal(env.Content, &users); err != nil {
			slog.Warn("bad users payload", "error", err)
			return
		}
		s.store.UpdateUsers(users)
	case ws.TypeMail:
		var mail model.MailReceive
		if err := json.Unmarshal(env.Content, &mail); err != nil {
			slog.Warn("bad mail payload", "error", err)
			return
		}
		s.store.PushMail(model.FromReceive(mail))
	default:
		slog.Debug("ignoring unknown server message", "type", env.Type)
	}
}

func (s *Service) send(mail model.MailSend) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		slog.Warn("mail composed with no connection", "mail_id", mail.ID)
		return
	}
	if err := conn.Send(ws.TypeMail, mail); err != nil {
		slog.Warn("mail send failed", "mail_id", mail.ID, "error", err)
	}
}
