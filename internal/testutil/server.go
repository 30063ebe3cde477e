// Package testutil runs an in-process LANSend server good enough for
// the client test suite: the REST snapshot endpoints, the file upload,
// and a /ws endpoint that records client mail and can push frames.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meowtec/LANSend/internal/model"
)

// Server is the fake. Configure behavior through its setters, then point
// the client at URL()/WSURL().
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader

	mu          sync.Mutex
	me          model.User
	users       []model.User
	longTexts   map[string]string
	conns       []*websocket.Conn
	failUploads bool
	failProfile bool

	received chan []byte
}

// NewServer starts the fake server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		me:        model.User{ID: "me", UserName: "me"},
		longTexts: make(map[string]string),
		received:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Get("/api/users", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		users := s.users
		s.mu.Unlock()
		writeData(w, users)
	})
	r.Get("/api/user-info", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		me := s.me
		s.mu.Unlock()
		writeData(w, me)
	})
	r.Post("/api/user-info", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		fail := s.failProfile
		s.mu.Unlock()
		if fail {
			writeError(w, 500, "profile update rejected")
			return
		}
		var user model.User
		if err := json.NewDecoder(req.Body).Decode(&user); err != nil {
			writeError(w, 400, "bad user payload")
			return
		}
		s.mu.Lock()
		s.me = user
		s.mu.Unlock()
		writeData(w, user)
	})
	r.Post("/api/file/upload", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		fail := s.failUploads
		s.mu.Unlock()
		body, _ := io.ReadAll(req.Body)
		if fail {
			writeError(w, 500, "upload rejected")
			return
		}
		writeData(w, model.FileObject{
			IsPreSend: false,
			ID:        uuid.NewString(),
			Name:      req.URL.Query().Get("filename"),
			Size:      int64(len(body)),
		})
	})
	r.Get("/api/file/{id}", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		text, ok := s.longTexts[chi.URLParam(req, "id")]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		_, _ = io.WriteString(w, text)
	})
	r.Get("/ws", s.serveWS)

	s.httpServer = httptest.NewServer(r)
	return s
}

// URL is the HTTP base URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// WSURL is the websocket endpoint URL.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http") + "/ws"
}

// Received delivers raw frames sent by clients, in arrival order.
func (s *Server) Received() <-chan []byte {
	return s.received
}

// SetUsers sets the roster served by GET /api/users.
func (s *Server) SetUsers(users []model.User) {
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
}

// SetMe sets the profile served by GET /api/user-info.
func (s *Server) SetMe(me model.User) {
	s.mu.Lock()
	s.me = me
	s.mu.Unlock()
}

// SetLongText registers a long-text body served by GET /api/file/{id}.
func (s *Server) SetLongText(id, text string) {
	s.mu.Lock()
	s.longTexts[id] = text
	s.mu.Unlock()
}

// FailUploads makes every upload answer with an error envelope.
func (s *Server) FailUploads(fail bool) {
	s.mu.Lock()
	s.failUploads = fail
	s.mu.Unlock()
}

// FailProfileUpdates makes POST /api/user-info answer with an error
// envelope.
func (s *Server) FailProfileUpdates(fail bool) {
	s.mu.Lock()
	s.failProfile = fail
	s.mu.Unlock()
}

// PushFrame broadcasts a raw text frame to every connected client.
func (s *Server) PushFrame(frame []byte) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
}

// PushUsers broadcasts a presence roster frame.
func (s *Server) PushUsers(users []model.User) {
	s.push("users", users)
}

// PushMail broadcasts an incoming mail frame.
func (s *Server) PushMail(mail model.MailReceive) {
	s.push("mail", mail)
}

func (s *Server) push(msgType string, content any) {
	raw, _ := json.Marshal(content)
	frame, _ := json.Marshal(map[string]json.RawMessage{
		"type":    json.RawMessage(`"` + msgType + `"`),
		"content": raw,
	})
	s.PushFrame(frame)
}

// CloseClients drops every websocket connection, leaving the server up.
func (s *Server) CloseClients() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Close shuts everything down.
func (s *Server) Close() {
	s.CloseClients()
	s.httpServer.Close()
}

func (s *Server) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	go func() {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			select {
			case s.received <- data:
			default:
			}
		}
	}()
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message})
}
