// Package main is the LANSend terminal client: a peer list with unread
// badges, one conversation pane, and a text input. The sync core under
// internal/ does the real work; this file only renders store state and
// forwards intents to the effect layer.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/meowtec/LANSend/internal/api"
	"github.com/meowtec/LANSend/internal/chat"
	"github.com/meowtec/LANSend/internal/config"
	"github.com/meowtec/LANSend/internal/model"
	"github.com/meowtec/LANSend/internal/persist"
	"github.com/meowtec/LANSend/internal/store"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	mineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
	sidebarStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	chatStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type stateMsg store.AppState

type ui struct {
	svc    *chat.Service
	store  *store.Store
	states chan store.AppState

	state  store.AppState
	cursor int
	input  textinput.Model
	width  int
	height int
	status string
}

func newUI(svc *chat.Service, st *store.Store) *ui {
	input := textinput.New()
	input.Placeholder = "message, /file <path>, /rename <name>"
	input.Focus()

	u := &ui{
		svc:    svc,
		store:  st,
		states: make(chan store.AppState, 1),
		state:  st.State(),
		input:  input,
	}
	st.Subscribe(func(state store.AppState) {
		// Keep only the freshest state; the view re-reads everything.
		for {
			select {
			case u.states <- state:
				return
			default:
				select {
				case <-u.states:
				default:
				}
			}
		}
	})
	return u
}

func (u *ui) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, u.waitForState())
}

func (u *ui) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-u.states)
	}
}

func (u *ui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		u.state = store.AppState(msg)
		return u, u.waitForState()

	case tea.WindowSizeMsg:
		u.width, u.height = msg.Width, msg.Height
		return u, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return u, tea.Quit
		case "ctrl+p":
			u.movePeer(-1)
			return u, nil
		case "ctrl+n":
			u.movePeer(1)
			return u, nil
		case "enter":
			u.submit()
			return u, nil
		}
	}

	var cmd tea.Cmd
	u.input, cmd = u.input.Update(msg)
	return u, cmd
}

// peers lists everyone worth showing: present users first, then peers
// known only from existing channels.
func (u *ui) peers() []model.User {
	seen := make(map[string]bool)
	var out []model.User
	for _, user := range u.state.PresentUsers {
		if u.state.MyInfo != nil && user.ID == u.state.MyInfo.ID {
			continue
		}
		seen[user.ID] = true
		out = append(out, user)
	}
	for _, ch := range u.state.Channels {
		if seen[ch.PeerID] {
			continue
		}
		user, ok := u.state.UserDirectory[ch.PeerID]
		if !ok {
			user = model.User{ID: ch.PeerID, UserName: ch.PeerID}
		}
		out = append(out, user)
	}
	return out
}

func (u *ui) movePeer(delta int) {
	peers := u.peers()
	if len(peers) == 0 {
		return
	}
	u.cursor = (u.cursor + delta + len(peers)) % len(peers)
	peer := peers[u.cursor]
	u.store.EnterChat(peer.ID)
	u.store.ClearUnread(peer.ID)
}

func (u *ui) submit() {
	text := strings.TrimSpace(u.input.Value())
	u.input.Reset()
	if text == "" {
		return
	}

	if name, ok := strings.CutPrefix(text, "/rename "); ok {
		me := u.state.MyInfo
		if me == nil {
			u.status = "profile not loaded yet"
			return
		}
		updated := *me
		updated.UserName = strings.TrimSpace(name)
		u.svc.ModifyMyProfile(context.Background(), updated)
		return
	}

	info := u.store.CurrentChannel()
	if info.PeerID == "" {
		u.status = "pick a peer first (ctrl+n / ctrl+p)"
		return
	}

	if path, ok := strings.CutPrefix(text, "/file "); ok {
		u.sendFile(info.PeerID, strings.TrimSpace(path))
		return
	}

	u.svc.SendMessage(context.Background(), info.PeerID, text)
}

func (u *ui) sendFile(peerID, path string) {
	f, err := os.Open(path)
	if err != nil {
		u.status = "open failed: " + err.Error()
		return
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		u.status = "stat failed: " + err.Error()
		return
	}
	// The upload goroutine owns the handle from here. There is no
	// cancellation of an in-flight upload.
	u.svc.SendFile(context.Background(), peerID, filepath.Base(path), stat.Size(), f)
	u.status = "uploading " + filepath.Base(path)
}

func (u *ui) View() string {
	header := titleStyle.Render("LANSend")
	if u.state.Online {
		header += "  " + onlineStyle.Render("online")
	} else {
		header += "  " + offlineStyle.Render("offline, reconnecting")
	}
	if u.state.MyInfo != nil {
		header += "  " + mineStyle.Render(u.state.MyInfo.UserName)
	}

	sidebar := sidebarStyle.Render(u.viewPeers())
	conversation := chatStyle.Width(max(20, u.width-lipgloss.Width(sidebar)-6)).Render(u.viewConversation())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, conversation)

	footer := u.input.View()
	if u.status != "" {
		footer += "\n" + offlineStyle.Render(u.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (u *ui) viewPeers() string {
	peers := u.peers()
	if len(peers) == 0 {
		return offlineStyle.Render("nobody here yet")
	}
	unread := u.store.UnreadCounts()
	present := make(map[string]bool, len(u.state.PresentUsers))
	for _, user := range u.state.PresentUsers {
		present[user.ID] = true
	}

	var b strings.Builder
	for i, peer := range peers {
		line := peer.UserName
		if present[peer.ID] {
			line = onlineStyle.Render("*") + " " + line
		} else {
			line = "  " + line
		}
		if n := unread[peer.ID]; n > 0 {
			line += " " + badgeStyle.Render(fmt.Sprintf("(%d)", n))
		}
		if i == u.cursor && peer.ID == u.state.OpenChatPeerID {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (u *ui) viewConversation() string {
	info := u.store.CurrentChannel()
	if info.PeerID == "" {
		return offlineStyle.Render("ctrl+n / ctrl+p to pick a peer")
	}
	if info.Channel == nil || len(info.Channel.Mails) == 0 {
		return offlineStyle.Render("no messages yet")
	}

	visible := info.Channel.Mails
	if limit := max(4, u.height-8); len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}

	var b strings.Builder
	for _, mail := range visible {
		author := "me"
		style := mineStyle
		if mail.Incoming() {
			style = onlineStyle
			if info.UserInfo != nil {
				author = info.UserInfo.UserName
			} else {
				author = mail.Sender
			}
		}
		b.WriteString(style.Render(author+":") + " " + u.renderBody(mail.Data) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (u *ui) renderBody(body model.MailBody) string {
	switch body.Kind {
	case model.KindText:
		return body.Text
	case model.KindLongText, model.KindFile:
		if body.File == nil {
			return "<empty>"
		}
		label := fmt.Sprintf("[%s %s, %d bytes]", body.Kind, body.File.Name, body.File.Size)
		if body.File.IsPreSend {
			if p, ok := u.store.FileProgress(body.File.ID); ok {
				if p == store.ProgressFailed {
					return label + badgeStyle.Render(" upload failed")
				}
				return fmt.Sprintf("%s %.0f%%", label, p)
			}
			return label + " ..."
		}
		return label
	}
	return "<?>"
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	snapshotPath := cfg.SnapshotPath
	if snapshotPath == "" {
		var err error
		snapshotPath, err = persist.DefaultPath()
		if err != nil {
			log.Fatalf("no usable snapshot path: %v", err)
		}
	}
	bridge := persist.NewBridge(snapshotPath)

	st := store.NewFrom(bridge.Load())
	bridge.Attach(st)

	svc := chat.NewService(chat.Config{
		WSURL:          cfg.WSURL(),
		MaxTextLen:     cfg.MaxTextLen,
		MaxLongTextLen: cfg.MaxLongTextLen,
		RetryDelay:     cfg.ReconnectDelay,
	}, st, api.NewClient(cfg.BaseURL()))

	log.Printf("connecting to %s", cfg.ServerHost)
	svc.Connect()
	defer svc.Disconnect()

	program := tea.NewProgram(newUI(svc, st), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("ui error: %v", err)
	}
}
