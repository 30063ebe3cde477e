package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailReceiveTextUnmarshal(t *testing.T) {
	raw := `{
		"id": "srv-1",
		"create_date": 1700000000000,
		"sender": "u1",
		"data": {"type": "text", "content": "hello"}
	}`
	var mail MailReceive
	require.NoError(t, json.Unmarshal([]byte(raw), &mail))
	assert.Equal(t, "u1", mail.Sender)
	assert.Equal(t, KindText, mail.Data.Kind)
	assert.Equal(t, "hello", mail.Data.Text)
	assert.Nil(t, mail.Data.File)
}

func TestMailReceiveFileUnmarshal(t *testing.T) {
	raw := `{
		"id": "srv-2",
		"create_date": 1700000000001,
		"sender": "u2",
		"data": {"type": "file", "content": {"isPreSend": false, "id": "f9", "name": "pic.png", "size": 2048}}
	}`
	var mail MailReceive
	require.NoError(t, json.Unmarshal([]byte(raw), &mail))
	assert.Equal(t, KindFile, mail.Data.Kind)
	require.NotNil(t, mail.Data.File)
	assert.Equal(t, "pic.png", mail.Data.File.Name)
	assert.EqualValues(t, 2048, mail.Data.File.Size)
}

func TestMailBodyRejectsUnknownKind(t *testing.T) {
	var body MailBody
	err := json.Unmarshal([]byte(`{"type": "video", "content": "x"}`), &body)
	assert.Error(t, err)
}

func TestMailBodyMarshalShapes(t *testing.T) {
	text, err := json.Marshal(MailBody{Kind: KindText, Text: "yo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "text", "content": "yo"}`, string(text))

	file, err := json.Marshal(MailBody{
		Kind: KindLongText,
		File: &FileObject{IsPreSend: true, ID: "pre_f", Name: "a.txt", Size: 12},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "long_text", "content": {"isPreSend": true, "id": "pre_f", "name": "a.txt", "size": 12}}`, string(file))
}

func TestChannelPeers(t *testing.T) {
	in := FromReceive(MailReceive{ID: "1", Sender: "u1"})
	assert.True(t, in.Incoming())
	assert.Equal(t, []string{"u1"}, in.ChannelPeers())

	out := Mail{ID: NewPreID(), Receivers: []string{"u2", "u3"}}
	assert.False(t, out.Incoming())
	assert.Equal(t, []string{"u2", "u3"}, out.ChannelPeers())
}

func TestNewPreIDIsPrefixedAndUnique(t *testing.T) {
	a, b := NewPreID(), NewPreID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, PreIDPrefix)
}
