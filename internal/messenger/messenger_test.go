package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/protocol"
)

type fakeAPI struct {
	ok      bool
	err     error
	lastTo  domain.ParticipantID
	lastMsg string
}

func (f *fakeAPI) SendMessage(_ context.Context, to domain.ParticipantID, msgType, payload string) (bool, error) {
	f.lastTo = to
	f.lastMsg = payload
	return f.ok, f.err
}

type fakeDC struct {
	sent    [][]byte
	sendErr error
	handler func([]byte)
}

func (d *fakeDC) Attach(context.Context) error { return nil }
func (d *fakeDC) Detach()                      {}
func (d *fakeDC) Send(p []byte) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, p)
	return nil
}
func (d *fakeDC) OnMessage(fn func([]byte)) { d.handler = fn }

func TestSendOverREST(t *testing.T) {
	api := &fakeAPI{ok: true}
	m := New(api, "self", "Alice", zerolog.Nop())

	msg, err := m.Send(context.Background(), "text/plain", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantID("self"), msg.SenderID)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, "hello", msg.Payload)
	assert.False(t, msg.Direct)
	assert.False(t, msg.At.IsZero())
	assert.Equal(t, domain.ParticipantID(""), api.lastTo)
}

func TestSendDirect(t *testing.T) {
	api := &fakeAPI{ok: true}
	m := New(api, "self", "Alice", zerolog.Nop())

	msg, err := m.Send(context.Background(), "text/plain", "psst", "bob")
	require.NoError(t, err)
	assert.True(t, msg.Direct)
	assert.Equal(t, domain.ParticipantID("bob"), api.lastTo)
}

func TestSendRejectedByServer(t *testing.T) {
	api := &fakeAPI{ok: false}
	m := New(api, "self", "Alice", zerolog.Nop())

	msg, err := m.Send(context.Background(), "text/plain", "hello", "")
	var nsErr *NotSentError
	require.ErrorAs(t, err, &nsErr)
	assert.Nil(t, nsErr.Cause, "rejection carries no transport cause")
	assert.Equal(t, msg, nsErr.Message, "the failed message travels in the error")
}

func TestSendTransportFailure(t *testing.T) {
	api := &fakeAPI{err: protocol.ErrInvalidToken}
	m := New(api, "self", "Alice", zerolog.Nop())

	msg, err := m.Send(context.Background(), "text/plain", "hello", "")
	var nsErr *NotSentError
	require.ErrorAs(t, err, &nsErr)
	assert.ErrorIs(t, err, protocol.ErrInvalidToken)
	assert.Equal(t, "hello", msg.Payload)
}

func TestSendCancellationNotWrapped(t *testing.T) {
	m := New(&fakeAPI{ok: true}, "self", "Alice", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Send(ctx, "text/plain", "hello", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var nsErr *NotSentError
	assert.False(t, errors.As(err, &nsErr), "cancellation must not be wrapped")
}

func TestSendOverDataChannelTagsSender(t *testing.T) {
	api := &fakeAPI{}
	dc := &fakeDC{}
	m := New(api, "self", "Alice", zerolog.Nop())
	m.UseDataChannel(dc)

	_, err := m.Send(context.Background(), "text/plain", "hello", "bob")
	require.NoError(t, err)
	require.Len(t, dc.sent, 1)
	assert.Empty(t, api.lastMsg, "REST path bypassed while the channel is attached")

	var dm struct {
		UUID    string `json:"uuid"`
		Origin  string `json:"origin"`
		Type    string `json:"type"`
		Payload string `json:"payload"`
		To      string `json:"to"`
	}
	require.NoError(t, json.Unmarshal(dc.sent[0], &dm))
	assert.Equal(t, "self", dm.UUID)
	assert.Equal(t, "Alice", dm.Origin)
	assert.Equal(t, "hello", dm.Payload)
	assert.Equal(t, "bob", dm.To)
}

func TestSendDataChannelFailure(t *testing.T) {
	dc := &fakeDC{sendErr: errors.New("channel closed")}
	m := New(&fakeAPI{}, "self", "Alice", zerolog.Nop())
	m.UseDataChannel(dc)

	msg, err := m.Send(context.Background(), "text/plain", "hello", "")
	var nsErr *NotSentError
	require.ErrorAs(t, err, &nsErr)
	assert.NotNil(t, nsErr.Cause)
	assert.Equal(t, msg, nsErr.Message)
}

func TestDropDataChannelRevertsToREST(t *testing.T) {
	api := &fakeAPI{ok: true}
	dc := &fakeDC{}
	m := New(api, "self", "Alice", zerolog.Nop())
	m.UseDataChannel(dc)
	m.DropDataChannel()

	_, err := m.Send(context.Background(), "text/plain", "hello", "")
	require.NoError(t, err)
	assert.Empty(t, dc.sent)
	assert.Equal(t, "hello", api.lastMsg)
}

func TestInboundFromDataChannel(t *testing.T) {
	dc := &fakeDC{}
	m := New(&fakeAPI{}, "self", "Alice", zerolog.Nop())
	m.UseDataChannel(dc)
	require.NotNil(t, dc.handler)

	dc.handler([]byte(`{"uuid":"bob","origin":"Bob","type":"text/plain","payload":"hi","to":"self"}`))
	msg := <-m.Messages()
	assert.Equal(t, domain.ParticipantID("bob"), msg.SenderID)
	assert.Equal(t, "Bob", msg.SenderName)
	assert.Equal(t, "hi", msg.Payload)
	assert.True(t, msg.Direct)

	// garbage is logged and dropped, never delivered
	dc.handler([]byte("not json"))
	select {
	case extra := <-m.Messages():
		t.Fatalf("undecodable payload was delivered: %+v", extra)
	default:
	}
}

func TestRunDeliversFeedMessages(t *testing.T) {
	m := New(&fakeAPI{}, "self", "Alice", zerolog.Nop())
	events := make(chan protocol.Event, 4)
	events <- protocol.Disconnect{Reason: "noise"}
	events <- protocol.MessageReceived{
		SenderID:   "bob",
		SenderName: "Bob",
		Type:       "text/plain",
		Payload:    "hello all",
	}
	close(events)

	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), events)
		close(done)
	}()
	<-done

	msg := <-m.Messages()
	assert.Equal(t, "hello all", msg.Payload)
	assert.False(t, msg.Direct)

	select {
	case extra := <-m.Messages():
		t.Fatalf("non-message event was delivered: %+v", extra)
	default:
	}
}
