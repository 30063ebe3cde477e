package ws_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowtec/LANSend/internal/model"
	"github.com/meowtec/LANSend/internal/testutil"
	"github.com/meowtec/LANSend/internal/ws"
)

const testRetryDelay = 100 * time.Millisecond

func waitEvent(t *testing.T, conn *ws.Conn, timeout time.Duration) ws.Event {
	t.Helper()
	select {
	case ev := <-conn.Events():
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for connection event")
		return nil
	}
}

func waitOpened(t *testing.T, conn *ws.Conn) {
	t.Helper()
	for {
		if _, ok := waitEvent(t, conn, 2*time.Second).(ws.Opened); ok {
			return
		}
	}
}

func recvMailFrame(t *testing.T, srv *testutil.Server) model.MailSend {
	t.Helper()
	select {
	case frame := <-srv.Received():
		env := ws.Decode(frame)
		require.NotNil(t, env)
		require.Equal(t, ws.TypeMail, env.Type)
		var mail model.MailSend
		require.NoError(t, json.Unmarshal(env.Content, &mail))
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a mail frame")
		return model.MailSend{}
	}
}

func sendTestMail(t *testing.T, conn *ws.Conn, id string) {
	t.Helper()
	err := conn.Send(ws.TypeMail, model.MailSend{
		ID:        id,
		Receivers: []string{"peer"},
		Data:      model.MailOutline{Type: model.KindText, Content: "hi " + id},
	})
	require.NoError(t, err)
}

func TestQueueFlushesInOrderOnConnect(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	defer conn.Close()

	// Queue while disconnected.
	sendTestMail(t, conn, "m1")
	sendTestMail(t, conn, "m2")
	sendTestMail(t, conn, "m3")

	conn.Open()
	waitOpened(t, conn)

	assert.Equal(t, "m1", recvMailFrame(t, srv).ID)
	assert.Equal(t, "m2", recvMailFrame(t, srv).ID)
	assert.Equal(t, "m3", recvMailFrame(t, srv).ID)

	// Exactly once: nothing else arrives.
	select {
	case frame := <-srv.Received():
		t.Fatalf("unexpected extra frame: %s", frame)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	defer conn.Close()

	conn.Open()
	waitOpened(t, conn)

	srv.CloseClients()

	_, closed := waitEvent(t, conn, 2*time.Second).(ws.Closed)
	assert.True(t, closed, "drop should emit Closed")

	// The redial happens on its own after the retry delay.
	waitOpened(t, conn)
	assert.Equal(t, ws.StateConnected, conn.State())
}

func TestQueueSurvivesDropAndFlushesOnReconnect(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	defer conn.Close()

	conn.Open()
	waitOpened(t, conn)
	srv.CloseClients()

	for {
		if _, ok := waitEvent(t, conn, 2*time.Second).(ws.Closed); ok {
			break
		}
	}
	sendTestMail(t, conn, "queued-while-down")

	waitOpened(t, conn)
	assert.Equal(t, "queued-while-down", recvMailFrame(t, srv).ID)
}

func TestReceivedEventsPreserveArrivalOrder(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	defer conn.Close()
	conn.Open()
	waitOpened(t, conn)

	srv.PushUsers([]model.User{{ID: "u1", UserName: "ann"}})
	srv.PushMail(model.MailReceive{
		ID:         "srv-1",
		CreateDate: 1700000000000,
		Sender:     "u1",
		Data:       model.MailBody{Kind: model.KindText, Text: "hello"},
	})

	ev1, ok := waitEvent(t, conn, 2*time.Second).(ws.Received)
	require.True(t, ok)
	assert.Equal(t, ws.TypeUsers, ev1.Envelope.Type)

	ev2, ok := waitEvent(t, conn, 2*time.Second).(ws.Received)
	require.True(t, ok)
	assert.Equal(t, ws.TypeMail, ev2.Envelope.Type)
}

func TestMalformedFramesAreDroppedSilently(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	defer conn.Close()
	conn.Open()
	waitOpened(t, conn)

	srv.PushFrame([]byte("this is not json"))
	srv.PushUsers([]model.User{{ID: "u1", UserName: "ann"}})

	// The bad frame produces no event and the connection stays up.
	ev, ok := waitEvent(t, conn, 2*time.Second).(ws.Received)
	require.True(t, ok)
	assert.Equal(t, ws.TypeUsers, ev.Envelope.Type)
	assert.Equal(t, ws.StateConnected, conn.State())
}

func TestCloseIsTerminal(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	conn.Open()
	waitOpened(t, conn)

	conn.Close()

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
	assert.ErrorIs(t, conn.Send(ws.TypeMail, model.MailSend{ID: "late"}), ws.ErrClosed)
	assert.Equal(t, ws.StateClosed, conn.State())

	// No automatic reconnect follows a user-initiated close.
	time.Sleep(3 * testRetryDelay)
	assert.Equal(t, ws.StateClosed, conn.State())
}

func TestOpenWhileConnectedIsNoOp(t *testing.T) {
	srv := testutil.NewServer()
	defer srv.Close()

	conn := ws.NewConn(srv.WSURL(), testRetryDelay)
	defer conn.Close()
	conn.Open()
	waitOpened(t, conn)

	conn.Open()

	select {
	case ev := <-conn.Events():
		t.Fatalf("unexpected event after redundant Open: %#v", ev)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, ws.StateConnected, conn.State())
}
