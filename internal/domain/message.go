package domain

import "time"

// Message is one chat message, inbound or outbound. Direct marks messages
// addressed to a single participant rather than the whole conference.
type Message struct {
	SenderID   ParticipantID
	SenderName string
	Type       string
	Payload    string
	Direct     bool
	At         time.Time
}
