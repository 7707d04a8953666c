// Package signaling adapts the call-lifecycle operations the media
// engine invokes into protocol calls, and narrows the event feed to the
// instructions the engine consumes.
package signaling

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/media"
	"github.com/openvc/confclient/internal/protocol"
	"github.com/openvc/confclient/internal/retry"
)

// API is the slice of the protocol client the signaling adapter needs.
type API interface {
	Calls(ctx context.Context, req protocol.CallRequest) (*protocol.CallResponse, error)
	UpdateCall(ctx context.Context, id domain.CallID, sdp string) (*protocol.CallResponse, error)
	AckCall(ctx context.Context, id domain.CallID, req protocol.AckRequest) error
	SendCandidate(ctx context.Context, id domain.CallID, req protocol.CandidateRequest) error
	DTMF(ctx context.Context, id domain.CallID, digits string) error

	ClientMute(ctx context.Context, id domain.ParticipantID) error
	ClientUnmute(ctx context.Context, id domain.ParticipantID) error
	MuteVideo(ctx context.Context, id domain.ParticipantID) error
	UnmuteVideo(ctx context.Context, id domain.ParticipantID) error
	TakeFloor(ctx context.Context, id domain.ParticipantID) error
	ReleaseFloor(ctx context.Context, id domain.ParticipantID) error

	PreferredAspectRatio(ctx context.Context, ratio float32) error
}

// ErrNoCall means a call-scoped operation ran before the first offer
// created the call.
var ErrNoCall = errors.New("no call established")

// Aspect-ratio hints outside these bounds are clamped before sending.
const (
	minAspectRatio = 0.1
	maxAspectRatio = 10
)

// Signaling drives the signaling exchange for one media session. The
// call handle is created exactly once, on the first successful offer
// response, and never rewritten.
type Signaling struct {
	api  API
	self domain.ParticipantID
	log  zerolog.Logger

	mu     sync.Mutex
	callID domain.CallID
	dc     media.DataChannel

	out chan Event
}

func New(api API, self domain.ParticipantID, logger zerolog.Logger) *Signaling {
	return &Signaling{
		api:  api,
		self: self,
		log:  logger,
		out:  make(chan Event, 16),
	}
}

// CallID returns the live call handle, empty until the first offer
// succeeds.
func (s *Signaling) CallID() domain.CallID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callID
}

// OnOffer sends the local description: the first call creates the remote
// call resource and records its handle, every later call updates the
// existing one. A nil result means the server ignored the offer or
// answered with an empty description; callers must not treat that as an
// error.
//
// The mutex spans the network call so a concurrent second offer can
// never race the handle into existing twice.
func (s *Signaling) OnOffer(ctx context.Context, callType, description string, presentationInMain, fecc bool) (*webrtc.SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var resp *protocol.CallResponse
	var err error
	if s.callID == "" {
		resp, err = retry.Do(ctx, s.log, "calls", func(ctx context.Context) (*protocol.CallResponse, error) {
			return s.api.Calls(ctx, protocol.CallRequest{
				CallType:           callType,
				SDP:                description,
				PresentationInMain: presentationInMain,
				FECC:               fecc,
			})
		})
		if err == nil {
			s.callID = resp.CallID
			s.log.Info().Str("module", "signaling").Str("call", string(resp.CallID)).Msg("call created")
		}
	} else {
		id := s.callID
		resp, err = retry.Do(ctx, s.log, "update", func(ctx context.Context) (*protocol.CallResponse, error) {
			return s.api.UpdateCall(ctx, id, description)
		})
	}
	if err != nil {
		return nil, wrapOp(err, func(err error) error { return &OfferError{Cause: err} })
	}
	if resp.OfferIgnored || resp.SDP == "" {
		return nil, nil
	}
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: resp.SDP}, nil
}

// OnOfferIgnored acknowledges that the local side decided not to act on a
// prior instruction.
func (s *Signaling) OnOfferIgnored(ctx context.Context) error {
	return s.ack(ctx, protocol.AckRequest{OfferIgnored: true})
}

// OnAnswer acknowledges the call with the local answer description.
func (s *Signaling) OnAnswer(ctx context.Context, description string) error {
	return s.ack(ctx, protocol.AckRequest{SDP: description})
}

// OnAck acknowledges without a payload, for exchanges that needed no
// description.
func (s *Signaling) OnAck(ctx context.Context) error {
	return s.ack(ctx, protocol.AckRequest{})
}

func (s *Signaling) ack(ctx context.Context, req protocol.AckRequest) error {
	id := s.CallID()
	if id == "" {
		return &AckError{Cause: ErrNoCall}
	}
	err := retry.DoVoid(ctx, s.log, "ack", func(ctx context.Context) error {
		return s.api.AckCall(ctx, id, req)
	})
	return wrapOp(err, func(err error) error { return &AckError{Cause: err} })
}

// OnCandidate forwards one ICE candidate with its media identifier and
// ICE credentials.
func (s *Signaling) OnCandidate(ctx context.Context, candidate, mid, ufrag, pwd string) error {
	id := s.CallID()
	if id == "" {
		return &CandidateError{Cause: ErrNoCall}
	}
	err := retry.DoVoid(ctx, s.log, "new_candidate", func(ctx context.Context) error {
		return s.api.SendCandidate(ctx, id, protocol.CandidateRequest{
			Candidate: candidate,
			Mid:       mid,
			UFrag:     ufrag,
			Pwd:       pwd,
		})
	})
	return wrapOp(err, func(err error) error { return &CandidateError{Cause: err} })
}

func (s *Signaling) OnDtmf(ctx context.Context, digits string) error {
	id := s.CallID()
	if id == "" {
		return &DTMFError{Cause: ErrNoCall}
	}
	err := retry.DoVoid(ctx, s.log, "dtmf", func(ctx context.Context) error {
		return s.api.DTMF(ctx, id, digits)
	})
	return wrapOp(err, func(err error) error { return &DTMFError{Cause: err} })
}

// State-change notifications. These act on the own participant id.

func (s *Signaling) OnAudioMuted(ctx context.Context) error {
	return s.notify(ctx, "client_mute", s.api.ClientMute,
		func(err error) error { return &AudioMuteError{Cause: err} })
}

func (s *Signaling) OnAudioUnmuted(ctx context.Context) error {
	return s.notify(ctx, "client_unmute", s.api.ClientUnmute,
		func(err error) error { return &AudioMuteError{Cause: err} })
}

func (s *Signaling) OnVideoMuted(ctx context.Context) error {
	return s.notify(ctx, "video_muted", s.api.MuteVideo,
		func(err error) error { return &VideoMuteError{Cause: err} })
}

func (s *Signaling) OnVideoUnmuted(ctx context.Context) error {
	return s.notify(ctx, "video_unmuted", s.api.UnmuteVideo,
		func(err error) error { return &VideoMuteError{Cause: err} })
}

func (s *Signaling) OnTakeFloor(ctx context.Context) error {
	return s.notify(ctx, "take_floor", s.api.TakeFloor,
		func(err error) error { return &FloorError{Cause: err} })
}

func (s *Signaling) OnReleaseFloor(ctx context.Context) error {
	return s.notify(ctx, "release_floor", s.api.ReleaseFloor,
		func(err error) error { return &FloorError{Cause: err} })
}

func (s *Signaling) notify(
	ctx context.Context,
	op string,
	call func(context.Context, domain.ParticipantID) error,
	wrap func(error) error,
) error {
	err := retry.DoVoid(ctx, s.log, op, func(ctx context.Context) error {
		return call(ctx, s.self)
	})
	return wrapOp(err, wrap)
}

// OnPreferredAspectRatio sends a purely advisory layout hint. The ratio
// is clamped to protocol bounds and failures are swallowed: the hint is
// not essential to correctness, so it is neither retried nor surfaced.
func (s *Signaling) OnPreferredAspectRatio(ctx context.Context, ratio float32) {
	if ratio < minAspectRatio {
		ratio = minAspectRatio
	}
	if ratio > maxAspectRatio {
		ratio = maxAspectRatio
	}
	if err := s.api.PreferredAspectRatio(ctx, ratio); err != nil {
		s.log.Debug().Str("module", "signaling").Err(err).Msg("aspect ratio hint failed")
	}
}

// Attach hands the engine-provided data channel to the adapter.
func (s *Signaling) Attach(ctx context.Context, dc media.DataChannel) error {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()
	return dc.Attach(ctx)
}

func (s *Signaling) Detach() {
	s.mu.Lock()
	dc := s.dc
	s.dc = nil
	s.mu.Unlock()
	if dc != nil {
		dc.Detach()
	}
}

// OnData registers a raw payload handler on the attached channel.
func (s *Signaling) OnData(fn func([]byte)) {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	if dc != nil {
		dc.OnMessage(fn)
	}
}

// DataChannel returns the currently attached channel, if any.
func (s *Signaling) DataChannel() media.DataChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc
}

func wrapOp(err error, wrap func(error) error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return wrap(err)
}
