package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowtec/LANSend/internal/model"
	"github.com/meowtec/LANSend/internal/store"
)

func tempBridge(t *testing.T) *Bridge {
	t.Helper()
	return NewBridge(filepath.Join(t.TempDir(), "chat-storage.json"))
}

func populatedState() store.AppState {
	st := store.New()
	st.UpdateUsers([]model.User{{ID: "u1", UserName: "ann"}})
	st.UpdateMyInfo(model.User{ID: "me", UserName: "margo"})
	st.PushMail(model.Mail{
		ID:         "srv-1",
		CreateDate: 1700000000000,
		Sender:     "u1",
		Data:       model.MailBody{Kind: model.KindText, Text: "hello"},
	})
	st.EnterChat("u1")
	st.SetUploadProgress("f1", 40)
	st.SetPendingLongText("f1", "wip")
	return st.State()
}

func TestSnapshotRoundTrip(t *testing.T) {
	b := tempBridge(t)
	require.NoError(t, b.Save(populatedState()))

	loaded := b.Load()
	require.NotNil(t, loaded.MyInfo)
	assert.Equal(t, "margo", loaded.MyInfo.UserName)
	require.Len(t, loaded.Channels, 1)
	assert.Equal(t, "hello", loaded.Channels[0].Mails[0].Data.Text)
	assert.Equal(t, 1, loaded.Channels[0].Unread)
	assert.Equal(t, "ann", loaded.UserDirectory["u1"].UserName)
}

func TestSnapshotNeverCarriesTransientState(t *testing.T) {
	b := tempBridge(t)
	require.NoError(t, b.Save(populatedState()))

	// Rehydrate the way main does: through the store constructor.
	st := store.NewFrom(b.Load())
	state := st.State()

	assert.Empty(t, state.OpenChatPeerID, "open chat always resets on reload")
	assert.Empty(t, state.UploadProgress)
	assert.Empty(t, state.PendingLongText)
	assert.False(t, state.ShowProfileEditor)
}

func TestLoadMissingFileGivesInitialState(t *testing.T) {
	b := NewBridge(filepath.Join(t.TempDir(), "nope.json"))
	state := b.Load()
	assert.Empty(t, state.Channels)
	assert.NotNil(t, state.UserDirectory)
}

func TestLoadRejectsGarbageAndWrongVersion(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{{{{"), 0o600))
	assert.Empty(t, NewBridge(garbage).Load().Channels)

	wrongVersion := filepath.Join(dir, "wrong.json")
	require.NoError(t, os.WriteFile(wrongVersion,
		[]byte(`{"name": "chat-storage", "version": 99, "state": {"channels": [{"peer_id": "u1"}]}}`), 0o600))
	assert.Empty(t, NewBridge(wrongVersion).Load().Channels)
}

func TestAttachShadowsEveryWrite(t *testing.T) {
	b := tempBridge(t)
	st := store.New()
	b.Attach(st)

	st.PushMail(model.Mail{
		ID:        "pre_1",
		Receivers: []string{"u1"},
		Data:      model.MailBody{Kind: model.KindText, Text: "persisted"},
	})

	loaded := b.Load()
	require.Len(t, loaded.Channels, 1)
	assert.Equal(t, "persisted", loaded.Channels[0].Mails[0].Data.Text)
}
