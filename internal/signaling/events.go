package signaling

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/openvc/confclient/internal/protocol"
)

// Event is one normalized instruction for the media engine.
type Event interface {
	isSignalingEvent()
}

type (
	// OfferEvent means a remote description is available. Both new-offer
	// and update-sdp normalize to it; the engine handles them the same.
	OfferEvent struct {
		Description webrtc.SessionDescription
	}

	CandidateEvent struct {
		Candidate webrtc.ICECandidateInit
		UFrag     string
		Pwd       string
	}

	// RestartEvent tells the engine the peer went away and the session
	// needs an ICE restart.
	RestartEvent struct{}
)

func (OfferEvent) isSignalingEvent()     {}
func (CandidateEvent) isSignalingEvent() {}
func (RestartEvent) isSignalingEvent()   {}

// Events is the engine-facing view of the feed, populated by Run.
func (s *Signaling) Events() <-chan Event {
	return s.out
}

// Run narrows the shared feed to the offer/candidate/restart subset and
// republishes it on Events, in arrival order.
func (s *Signaling) Run(ctx context.Context, events <-chan protocol.Event) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			sig, ok := narrow(ev)
			if !ok {
				continue
			}
			select {
			case s.out <- sig:
			case <-ctx.Done():
				return
			}
		}
	}
}

func narrow(ev protocol.Event) (Event, bool) {
	switch e := ev.(type) {
	case protocol.NewOffer:
		return OfferEvent{Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: e.SDP}}, true
	case protocol.UpdateSDP:
		return OfferEvent{Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: e.SDP}}, true
	case protocol.NewCandidate:
		mid := e.Mid
		return CandidateEvent{
			Candidate: webrtc.ICECandidateInit{Candidate: e.Candidate, SDPMid: &mid},
			UFrag:     e.UFrag,
			Pwd:       e.Pwd,
		}, true
	case protocol.PeerDisconnect:
		return RestartEvent{}, true
	default:
		return nil, false
	}
}
