// Package media declares the narrow surface of the external
// media-transport engine. The engine owns codec negotiation, DTLS/SRTP
// and rendering; the session core only exchanges descriptions and
// candidates with it through these interfaces.
package media

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// Transport is implemented by the media engine's binding layer.
type Transport interface {
	CreatePeerSession(ctx context.Context) error
	SetLocalDescription(ctx context.Context, d webrtc.SessionDescription) error
	SetRemoteDescription(ctx context.Context, d webrtc.SessionDescription) error
	AddCandidate(c webrtc.ICECandidateInit) error
	RemoteTrack(kind webrtc.RTPCodecType) (*webrtc.TrackRemote, error)
}

// DataChannel is a generic bidirectional byte channel, typically backed
// by the engine's negotiated data channel. The owner must Attach before
// use and Detach when done.
type DataChannel interface {
	Attach(ctx context.Context) error
	Detach()
	Send(payload []byte) error
	OnMessage(fn func(payload []byte))
}
