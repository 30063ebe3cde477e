package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMalformedInputYieldsNil(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "hello there"},
		{"truncated json", `{"type": "mail", "content":`},
		{"missing type", `{"content": {"id": "m1"}}`},
		{"empty type", `{"type": "", "content": 1}`},
		{"json array", `[1, 2, 3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, Decode([]byte(tc.data)))
		})
	}
}

func TestDecodeValidEnvelope(t *testing.T) {
	env := Decode([]byte(`{"type": "users", "content": [{"id": "u1", "user_name": "ann"}]}`))
	require.NotNil(t, env)
	assert.Equal(t, TypeUsers, env.Type)
	assert.JSONEq(t, `[{"id": "u1", "user_name": "ann"}]`, string(env.Content))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame, err := Encode(TypeMail, map[string]string{"id": "m1"})
	require.NoError(t, err)

	env := Decode(frame)
	require.NotNil(t, env)
	assert.Equal(t, TypeMail, env.Type)
	assert.JSONEq(t, `{"id": "m1"}`, string(env.Content))
}
