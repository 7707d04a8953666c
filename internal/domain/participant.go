// Package domain contains entities without logic, just meta-data.
package domain

type (
	ParticipantID   string
	CallID          string
	ConferenceAlias string
)

type Role string

const (
	RoleHost  Role = "chair"
	RoleGuest Role = "guest"
)

type ServiceType string

const (
	ServiceConference ServiceType = "conference"
	ServiceGateway    ServiceType = "gateway"
	ServiceTestCall   ServiceType = "test_call"
)

// Participant is one row of the conference roster. Speaking is derived
// from stage events, everything else mirrors the server's record.
type Participant struct {
	ID          ParticipantID
	DisplayName string
	OverlayText string
	Role        Role
	ServiceType ServiceType

	AudioMuted       bool // muted by the server (host action)
	ClientAudioMuted bool // muted locally by the participant's own client
	VideoMuted       bool
	Presenting       bool
	Speaking         bool

	// Unix seconds; zero means lowered / not spotlit.
	HandRaisedAt float64
	SpotlightAt  float64

	CanMute       bool
	CanTransfer   bool
	CanDisconnect bool

	CallTag  string
	ParentID ParticipantID // empty when the participant has no parent
}

func (p Participant) HandRaised() bool { return p.HandRaisedAt != 0 }
func (p Participant) Spotlit() bool    { return p.SpotlightAt != 0 }
