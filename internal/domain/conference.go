package domain

// ConferenceStatus mirrors the latest conference-update event.
//
// GuestsCanUnmute is a tri-state: nil means the server has not reported
// the policy yet, which is distinct from an explicit false. Callers must
// not infer a default.
type ConferenceStatus struct {
	Locked          bool
	AllGuestsMuted  bool
	GuestsCanUnmute *bool
}
