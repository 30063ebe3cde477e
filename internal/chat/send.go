package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/meowtec/LANSend/internal/model"
	"github.com/meowtec/LANSend/internal/store"
)

// SendMessage sends text to a peer. Short text goes straight over the
// socket with an optimistic channel entry; anything longer is uploaded
// first and mailed as a long_text or file reference once confirmed.
func (s *Service) SendMessage(ctx context.Context, peerID, text string) {
	if utf8.RuneCountInString(text) <= s.cfg.MaxTextLen {
		s.sendText(peerID, text)
		return
	}

	kind := model.KindFile
	if utf8.RuneCountInString(text) < s.cfg.MaxLongTextLen {
		kind = model.KindLongText
	}
	name := time.Now().UTC().Format(time.RFC3339) + "-" + uuid.NewString() + ".txt"
	s.sendUpload(ctx, peerID, kind, name, int64(len(text)), strings.NewReader(text), text)
}

// SendFile uploads a local file and mails it to the peer.
func (s *Service) SendFile(ctx context.Context, peerID, name string, size int64, body io.Reader) {
	s.sendUpload(ctx, peerID, model.KindFile, name, size, body, "")
}

func (s *Service) sendText(peerID, text string) {
	// Same hygiene the server applies to broadcast content.
	text = s.sanitize.Sanitize(text)

	mail := model.Mail{
		ID:        model.NewPreID(),
		Receivers: []string{peerID},
		Data:      model.MailBody{Kind: model.KindText, Text: text},
	}
	s.store.PushMail(mail)
	s.send(model.MailSend{
		ID:        mail.ID,
		Receivers: mail.Receivers,
		Data:      model.MailOutline{Type: model.KindText, Content: text},
	})
}

// sendUpload runs the two-phase optimistic send: push a pre-send
// placeholder now, then replace it under the same mail id when the upload
// confirms. A failed upload leaves the placeholder with the failure
// sentinel in the progress map; nothing retries automatically.
func (s *Service) sendUpload(ctx context.Context, peerID string, kind model.MailKind, name string, size int64, body io.Reader, longText string) {
	preID := model.NewPreID()
	fileID := model.NewPreID()

	mail := model.Mail{
		ID:        preID,
		Receivers: []string{peerID},
		Data: model.MailBody{
			Kind: kind,
			File: &model.FileObject{IsPreSend: true, ID: fileID, Name: name, Size: size},
		},
	}
	s.store.PushMail(mail)
	if longText != "" {
		s.store.SetPendingLongText(fileID, longText)
	}

	go func() {
		obj, err := s.api.UploadFile(ctx, name, size, body, func(percent float64) {
			s.store.SetUploadProgress(fileID, percent)
		})
		if err != nil {
			slog.Error("upload failed", "file", name, "error", err)
			s.store.SetUploadProgress(fileID, store.ProgressFailed)
			return
		}

		final := mail
		final.Data = model.MailBody{Kind: kind, File: &obj}
		s.store.ReplacePreMail(final)
		s.send(model.MailSend{
			ID:        preID,
			Receivers: mail.Receivers,
			Data:      model.MailOutline{Type: kind, Content: obj.ID},
		})
	}()
}

// LongText resolves the body of a long-text mail, serving our own
// uploads from the local cache before asking the server.
func (s *Service) LongText(ctx context.Context, fileID string) (string, error) {
	if text, ok := s.store.State().PendingLongText[fileID]; ok {
		return text, nil
	}
	return s.api.LongText(ctx, fileID)
}

// ModifyMyProfile applies the profile change optimistically and rolls it
// back if the server rejects it.
func (s *Service) ModifyMyProfile(ctx context.Context, info model.User) {
	prev := s.store.State().MyInfo
	s.store.UpdateMyInfo(info)

	go func() {
		if _, err := s.api.UpdateUserInfo(ctx, info); err != nil {
			slog.Error("profile update failed, rolling back", "error", err)
			if prev != nil {
				s.store.UpdateMyInfo(*prev)
			}
		}
	}()
}
