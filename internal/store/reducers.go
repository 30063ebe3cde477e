package store

import (
	"github.com/meowtec/LANSend/internal/model"
)

// UpdateUsers replaces the presence set and upserts every user into the
// directory. Users who went offline stay in the directory so their names
// still render in old channels.
func (s *Store) UpdateUsers(users []model.User) {
	s.dispatch(func(st *AppState) {
		st.PresentUsers = users
		for _, u := range users {
			st.UserDirectory[u.ID] = u
		}
	})
}

// UpdateMyInfo replaces the local user's profile wholesale.
func (s *Store) UpdateMyInfo(user model.User) {
	s.dispatch(func(st *AppState) {
		st.MyInfo = &user
	})
}

// PushMail appends the mail to the channel of every target peer, creating
// channels lazily. Incoming mail into a channel that is not the open one
// bumps its unread counter.
func (s *Store) PushMail(mail model.Mail) {
	s.dispatch(func(st *AppState) {
		for _, peer := range mail.ChannelPeers() {
			ch := ensureChannel(st, peer)
			ch.Mails = append(ch.Mails, mail)
			if mail.Incoming() && st.OpenChatPeerID != peer {
				ch.Unread++
			}
		}
	})
}

// ReplacePreMail overwrites, in place, the mail with the same id in each
// receiver's channel. A missing channel or id is a silent no-op: the
// optimistic push always precedes the replace, so not finding it means
// there is nothing to fix up.
func (s *Store) ReplacePreMail(mail model.Mail) {
	s.dispatch(func(st *AppState) {
		for _, peer := range mail.Receivers {
			ch := findChannel(st, peer)
			if ch == nil {
				continue
			}
			for i := range ch.Mails {
				if ch.Mails[i].ID == mail.ID {
					ch.Mails[i] = mail
					break
				}
			}
		}
	})
}

// EnterChat opens the conversation with the given peer.
func (s *Store) EnterChat(peerID string) {
	s.dispatch(func(st *AppState) {
		st.OpenChatPeerID = peerID
	})
}

// ExitChat closes the open conversation.
func (s *Store) ExitChat() {
	s.dispatch(func(st *AppState) {
		st.OpenChatPeerID = ""
	})
}

// ClearUnread zeroes the unread counter of the peer's channel, if any.
func (s *Store) ClearUnread(peerID string) {
	s.dispatch(func(st *AppState) {
		if ch := findChannel(st, peerID); ch != nil {
			ch.Unread = 0
		}
	})
}

// SetProfileEditor toggles the profile editor flag.
func (s *Store) SetProfileEditor(visible bool) {
	s.dispatch(func(st *AppState) {
		st.ShowProfileEditor = visible
	})
}

// SetUploadProgress records upload progress for a file, 0-100, or the
// ProgressFailed sentinel.
func (s *Store) SetUploadProgress(fileID string, percent float64) {
	s.dispatch(func(st *AppState) {
		st.UploadProgress[fileID] = percent
	})
}

// SetPendingLongText caches the body of a long text being uploaded so
// opening the sent mail needs no refetch.
func (s *Store) SetPendingLongText(fileID, text string) {
	s.dispatch(func(st *AppState) {
		st.PendingLongText[fileID] = text
	})
}

// SetOnline records the connection state.
func (s *Store) SetOnline(online bool) {
	s.dispatch(func(st *AppState) {
		st.Online = online
	})
}

func ensureChannel(st *AppState, peer string) *Channel {
	if ch := findChannel(st, peer); ch != nil {
		return ch
	}
	st.Channels = append(st.Channels, Channel{PeerID: peer})
	return &st.Channels[len(st.Channels)-1]
}

func findChannel(st *AppState, peer string) *Channel {
	for i := range st.Channels {
		if st.Channels[i].PeerID == peer {
			return &st.Channels[i]
		}
	}
	return nil
}
