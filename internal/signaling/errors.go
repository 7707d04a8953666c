package signaling

// Per-operation error types, each wrapping the underlying cause.

type OfferError struct{ Cause error }

func (e *OfferError) Error() string { return "offer: " + e.Cause.Error() }
func (e *OfferError) Unwrap() error { return e.Cause }

type AckError struct{ Cause error }

func (e *AckError) Error() string { return "ack: " + e.Cause.Error() }
func (e *AckError) Unwrap() error { return e.Cause }

type CandidateError struct{ Cause error }

func (e *CandidateError) Error() string { return "candidate: " + e.Cause.Error() }
func (e *CandidateError) Unwrap() error { return e.Cause }

type DTMFError struct{ Cause error }

func (e *DTMFError) Error() string { return "dtmf: " + e.Cause.Error() }
func (e *DTMFError) Unwrap() error { return e.Cause }

type AudioMuteError struct{ Cause error }

func (e *AudioMuteError) Error() string { return "audio mute: " + e.Cause.Error() }
func (e *AudioMuteError) Unwrap() error { return e.Cause }

type VideoMuteError struct{ Cause error }

func (e *VideoMuteError) Error() string { return "video mute: " + e.Cause.Error() }
func (e *VideoMuteError) Unwrap() error { return e.Cause }

type FloorError struct{ Cause error }

func (e *FloorError) Error() string { return "floor: " + e.Cause.Error() }
func (e *FloorError) Unwrap() error { return e.Cause }
