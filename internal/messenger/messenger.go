// Package messenger sends and receives chat messages, over the REST
// channel or over a generic data channel supplied by the media engine.
package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/media"
	"github.com/openvc/confclient/internal/protocol"
	"github.com/openvc/confclient/internal/retry"
)

// API is the slice of the protocol client the messenger needs.
type API interface {
	SendMessage(ctx context.Context, to domain.ParticipantID, msgType, payload string) (bool, error)
}

// NotSentError reports a failed send. Cause is nil when the server
// explicitly rejected the message rather than the transport failing.
// Message is always the value the caller tried to send.
type NotSentError struct {
	Message domain.Message
	Cause   error
}

func (e *NotSentError) Error() string {
	if e.Cause == nil {
		return "message rejected by server"
	}
	return "message not sent: " + e.Cause.Error()
}

func (e *NotSentError) Unwrap() error { return e.Cause }

// dataMessage is the wire shape on the data channel. Unlike the REST
// channel there is no per-request identity, so the sender tags its own
// id and name on every outgoing message.
type dataMessage struct {
	SenderID   domain.ParticipantID `json:"uuid"`
	SenderName string               `json:"origin"`
	Type       string               `json:"type"`
	Payload    string               `json:"payload"`
	To         domain.ParticipantID `json:"to,omitempty"`
}

type Messenger struct {
	api      API
	self     domain.ParticipantID
	selfName string
	log      zerolog.Logger

	mu sync.Mutex
	dc media.DataChannel

	out chan domain.Message
}

func New(api API, self domain.ParticipantID, selfName string, logger zerolog.Logger) *Messenger {
	return &Messenger{
		api:      api,
		self:     self,
		selfName: selfName,
		log:      logger,
		out:      make(chan domain.Message, 32),
	}
}

// Messages delivers inbound chat messages from either channel.
func (m *Messenger) Messages() <-chan domain.Message {
	return m.out
}

// Send posts one message, to the whole conference when to is empty. The
// outgoing Message is built before anything can fail, so the caller has
// a value to log either way; on failure it travels inside NotSentError.
func (m *Messenger) Send(ctx context.Context, msgType, payload string, to domain.ParticipantID) (domain.Message, error) {
	msg := domain.Message{
		SenderID:   m.self,
		SenderName: m.selfName,
		Type:       msgType,
		Payload:    payload,
		Direct:     to != "",
		At:         time.Now(),
	}

	if dc := m.channel(); dc != nil {
		if err := m.sendData(dc, msg, to); err != nil {
			return msg, &NotSentError{Message: msg, Cause: err}
		}
		return msg, nil
	}

	ok, err := retry.Do(ctx, m.log, "message", func(ctx context.Context) (bool, error) {
		return m.api.SendMessage(ctx, to, msgType, payload)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return msg, err
		}
		return msg, &NotSentError{Message: msg, Cause: err}
	}
	if !ok {
		return msg, &NotSentError{Message: msg}
	}
	return msg, nil
}

func (m *Messenger) sendData(dc media.DataChannel, msg domain.Message, to domain.ParticipantID) error {
	raw, err := json.Marshal(dataMessage{
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Type:       msg.Type,
		Payload:    msg.Payload,
		To:         to,
	})
	if err != nil {
		return err
	}
	return dc.Send(raw)
}

// UseDataChannel routes sends and receives through dc instead of REST.
func (m *Messenger) UseDataChannel(dc media.DataChannel) {
	m.mu.Lock()
	m.dc = dc
	m.mu.Unlock()
	dc.OnMessage(m.onData)
}

// DropDataChannel reverts to the REST channel.
func (m *Messenger) DropDataChannel() {
	m.mu.Lock()
	m.dc = nil
	m.mu.Unlock()
}

func (m *Messenger) channel() media.DataChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dc
}

func (m *Messenger) onData(payload []byte) {
	var dm dataMessage
	if err := json.Unmarshal(payload, &dm); err != nil {
		m.log.Warn().Str("module", "messenger").Err(err).Msg("undecodable data-channel payload")
		return
	}
	m.deliver(domain.Message{
		SenderID:   dm.SenderID,
		SenderName: dm.SenderName,
		Type:       dm.Type,
		Payload:    dm.Payload,
		Direct:     dm.To != "",
		At:         time.Now(),
	})
}

// Run folds message-received events from the feed into the inbound
// stream until the subscription closes or ctx is cancelled.
func (m *Messenger) Run(ctx context.Context, events <-chan protocol.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			mr, ok := ev.(protocol.MessageReceived)
			if !ok {
				continue
			}
			m.deliver(domain.Message{
				SenderID:   mr.SenderID,
				SenderName: mr.SenderName,
				Type:       mr.Type,
				Payload:    mr.Payload,
				Direct:     mr.Direct,
				At:         time.Now(),
			})
		}
	}
}

func (m *Messenger) deliver(msg domain.Message) {
	select {
	case m.out <- msg:
	default:
		m.log.Warn().Str("module", "messenger").Msg("inbound message dropped, consumer too slow")
	}
}
