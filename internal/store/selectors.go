package store

import (
	"slices"

	"github.com/meowtec/LANSend/internal/model"
)

// CurrentChannelInfo describes the open conversation for rendering.
// IsOnline derives from presence-set membership alone; a peer can be
// online with no channel and a channel can outlive its peer's presence.
type CurrentChannelInfo struct {
	PeerID   string
	IsOnline bool
	UserInfo *model.User
	Channel  *Channel
}

// CurrentChannel derives the open-conversation view. The result is
// memoized against the store version, reselect-style.
func (s *Store) CurrentChannel() CurrentChannelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.curValid && s.curVersion == s.version {
		return s.curMemo
	}

	st := s.state
	info := CurrentChannelInfo{PeerID: st.OpenChatPeerID}
	if st.OpenChatPeerID != "" {
		info.IsOnline = slices.ContainsFunc(st.PresentUsers, func(u model.User) bool {
			return u.ID == st.OpenChatPeerID
		})
		if u, ok := st.UserDirectory[st.OpenChatPeerID]; ok {
			info.UserInfo = &u
		}
		if ch := findChannel(&st, st.OpenChatPeerID); ch != nil {
			chCopy := *ch
			info.Channel = &chCopy
		}
	}

	s.curMemo = info
	s.curVersion = s.version
	s.curValid = true
	return info
}

// UnreadCounts maps peer id to that channel's unread counter, for badge
// rendering. Memoized against the store version.
func (s *Store) UnreadCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unreadMemo != nil && s.unreadVersion == s.version {
		return s.unreadMemo
	}

	counts := make(map[string]int, len(s.state.Channels))
	for _, ch := range s.state.Channels {
		counts[ch.PeerID] = ch.Unread
	}
	s.unreadMemo = counts
	s.unreadVersion = s.version
	return counts
}

// FileProgress returns the recorded upload progress for a file id.
func (s *Store) FileProgress(fileID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.UploadProgress[fileID]
	return p, ok
}
