package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/openvc/confclient/internal/domain"
)

// Event is one decoded server-push event. The concrete type carries the
// payload; consumers type-switch on it and ignore what they do not handle.
type Event interface {
	isEvent()
}

type (
	// ParticipantSyncBegin opens a roster resynchronization transaction.
	ParticipantSyncBegin struct{}
	// ParticipantSyncEnd commits it.
	ParticipantSyncEnd struct{}

	ParticipantCreate struct{ Participant domain.Participant }
	ParticipantUpdate struct{ Participant domain.Participant }
	ParticipantDelete struct{ ID domain.ParticipantID }

	// Stage reports the current speakers with their voice-activity level.
	Stage struct{ Speakers []SpeakerEntry }

	ConferenceUpdate struct {
		Locked          bool
		AllGuestsMuted  bool
		GuestsCanUnmute *bool
	}

	PresentationStart struct {
		PresenterID   domain.ParticipantID
		PresenterName string
	}
	PresentationStop struct{}

	MessageReceived struct {
		SenderID   domain.ParticipantID
		SenderName string
		Type       string
		Payload    string
		Direct     bool
	}

	// Disconnect tells this participant the session is over.
	Disconnect struct{ Reason string }

	// CallDisconnected refers to one media call, not the session.
	CallDisconnected struct {
		CallID domain.CallID
		Reason string
	}

	// Refer instructs the client to move to another conference.
	Refer struct {
		Alias domain.ConferenceAlias
		Token string
	}

	NewOffer  struct{ SDP string }
	UpdateSDP struct{ SDP string }

	NewCandidate struct {
		Candidate string
		Mid       string
		UFrag     string
		Pwd       string
	}

	PeerDisconnect struct{}

	// UnknownEvent stands in for any event type this client does not
	// recognize, so forward-incompatible servers never break the feed.
	UnknownEvent struct{ Type string }
)

func (ParticipantSyncBegin) isEvent() {}
func (ParticipantSyncEnd) isEvent()   {}
func (ParticipantCreate) isEvent()    {}
func (ParticipantUpdate) isEvent()    {}
func (ParticipantDelete) isEvent()    {}
func (Stage) isEvent()                {}
func (ConferenceUpdate) isEvent()     {}
func (PresentationStart) isEvent()    {}
func (PresentationStop) isEvent()     {}
func (MessageReceived) isEvent()      {}
func (Disconnect) isEvent()           {}
func (CallDisconnected) isEvent()     {}
func (Refer) isEvent()                {}
func (NewOffer) isEvent()             {}
func (UpdateSDP) isEvent()            {}
func (NewCandidate) isEvent()         {}
func (PeerDisconnect) isEvent()       {}
func (UnknownEvent) isEvent()         {}

type SpeakerEntry struct {
	ID  domain.ParticipantID `json:"participant_uuid"`
	VAD int                  `json:"vad"`
}

// wireParticipant is the participant record as the server serializes it.
type wireParticipant struct {
	UUID             domain.ParticipantID `json:"uuid"`
	DisplayName      string               `json:"display_name"`
	OverlayText      string               `json:"overlay_text"`
	Role             domain.Role          `json:"role"`
	ServiceType      domain.ServiceType   `json:"service_type"`
	IsAudioMuted     bool                 `json:"is_audio_muted"`
	IsClientMuted    bool                 `json:"is_client_muted"`
	IsVideoMuted     bool                 `json:"is_video_muted"`
	IsPresenting     bool                 `json:"is_presenting"`
	BuzzTime         float64              `json:"buzz_time"`
	SpotlightTime    float64              `json:"spotlight"`
	CanMute          bool                 `json:"mute_supported"`
	CanTransfer      bool                 `json:"transfer_supported"`
	CanDisconnect    bool                 `json:"disconnect_supported"`
	CallTag          string               `json:"call_tag"`
	ParentUUID       domain.ParticipantID `json:"parent_uuid"`
}

func (w wireParticipant) toDomain() domain.Participant {
	return domain.Participant{
		ID:               w.UUID,
		DisplayName:      w.DisplayName,
		OverlayText:      w.OverlayText,
		Role:             w.Role,
		ServiceType:      w.ServiceType,
		AudioMuted:       w.IsAudioMuted,
		ClientAudioMuted: w.IsClientMuted,
		VideoMuted:       w.IsVideoMuted,
		Presenting:       w.IsPresenting,
		HandRaisedAt:     w.BuzzTime,
		SpotlightAt:      w.SpotlightTime,
		CanMute:          w.CanMute,
		CanTransfer:      w.CanTransfer,
		CanDisconnect:    w.CanDisconnect,
		CallTag:          w.CallTag,
		ParentID:         w.ParentUUID,
	}
}

// DecodeEvent turns one (type, data) pair from the push stream into a typed
// Event. Unrecognized types decode to UnknownEvent, never an error, so the
// feed survives talking to newer servers. A decode failure on a known type
// is a real error: it means the wire format diverged, not the vocabulary.
func DecodeEvent(eventType string, data []byte) (Event, error) {
	switch eventType {
	case "participant_sync_begin":
		return ParticipantSyncBegin{}, nil
	case "participant_sync_end":
		return ParticipantSyncEnd{}, nil
	case "participant_create":
		return decodeParticipant(eventType, data, func(p domain.Participant) Event {
			return ParticipantCreate{Participant: p}
		})
	case "participant_update":
		return decodeParticipant(eventType, data, func(p domain.Participant) Event {
			return ParticipantUpdate{Participant: p}
		})
	case "participant_delete":
		var body struct {
			UUID domain.ParticipantID `json:"uuid"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return ParticipantDelete{ID: body.UUID}, nil
	case "stage":
		var speakers []SpeakerEntry
		if err := json.Unmarshal(data, &speakers); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return Stage{Speakers: speakers}, nil
	case "conference_update":
		var body struct {
			Locked          bool  `json:"locked"`
			GuestsMuted     bool  `json:"guests_muted"`
			GuestsCanUnmute *bool `json:"guests_can_unmute"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return ConferenceUpdate{
			Locked:          body.Locked,
			AllGuestsMuted:  body.GuestsMuted,
			GuestsCanUnmute: body.GuestsCanUnmute,
		}, nil
	case "presentation_start":
		var body struct {
			PresenterUUID domain.ParticipantID `json:"presenter_uuid"`
			PresenterName string               `json:"presenter_name"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return PresentationStart{PresenterID: body.PresenterUUID, PresenterName: body.PresenterName}, nil
	case "presentation_stop":
		return PresentationStop{}, nil
	case "message_received":
		var body struct {
			UUID    domain.ParticipantID `json:"uuid"`
			Origin  string               `json:"origin"`
			Type    string               `json:"type"`
			Payload string               `json:"payload"`
			Direct  bool                 `json:"direct"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return MessageReceived{
			SenderID:   body.UUID,
			SenderName: body.Origin,
			Type:       body.Type,
			Payload:    body.Payload,
			Direct:     body.Direct,
		}, nil
	case "disconnect":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return Disconnect{Reason: body.Reason}, nil
	case "call_disconnected":
		var body struct {
			CallUUID domain.CallID `json:"call_uuid"`
			Reason   string        `json:"reason"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return CallDisconnected{CallID: body.CallUUID, Reason: body.Reason}, nil
	case "refer":
		var body struct {
			Alias domain.ConferenceAlias `json:"alias"`
			Token string                 `json:"token"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return Refer{Alias: body.Alias, Token: body.Token}, nil
	case "new_offer":
		var body struct {
			SDP string `json:"sdp"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewOffer{SDP: body.SDP}, nil
	case "update_sdp":
		var body struct {
			SDP string `json:"sdp"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return UpdateSDP{SDP: body.SDP}, nil
	case "new_candidate":
		var body struct {
			Candidate string `json:"candidate"`
			Mid       string `json:"mid"`
			UFrag     string `json:"ufrag"`
			Pwd       string `json:"pwd"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewCandidate{Candidate: body.Candidate, Mid: body.Mid, UFrag: body.UFrag, Pwd: body.Pwd}, nil
	case "peer_disconnect":
		return PeerDisconnect{}, nil
	default:
		return UnknownEvent{Type: eventType}, nil
	}
}

func decodeParticipant(eventType string, data []byte, wrap func(domain.Participant) Event) (Event, error) {
	var w wireParticipant
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, decodeErr(eventType, err)
	}
	return wrap(w.toDomain()), nil
}

func decodeErr(eventType string, err error) error {
	return fmt.Errorf("decode %s event: %w", eventType, err)
}
