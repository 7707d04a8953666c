package roster

import "errors"

// ErrUnknownParticipant means the target id has no action handle: the
// roster has never seen it, or it already left.
var ErrUnknownParticipant = errors.New("unknown participant")

// Every action fails with its own error type wrapping the underlying
// cause, so callers can discriminate without string matching.

type AdmitError struct{ Cause error }

func (e *AdmitError) Error() string { return "admit: " + e.Cause.Error() }
func (e *AdmitError) Unwrap() error { return e.Cause }

type DisconnectError struct{ Cause error }

func (e *DisconnectError) Error() string { return "disconnect: " + e.Cause.Error() }
func (e *DisconnectError) Unwrap() error { return e.Cause }

type RoleError struct{ Cause error }

func (e *RoleError) Error() string { return "set role: " + e.Cause.Error() }
func (e *RoleError) Unwrap() error { return e.Cause }

type MuteError struct{ Cause error }

func (e *MuteError) Error() string { return "mute: " + e.Cause.Error() }
func (e *MuteError) Unwrap() error { return e.Cause }

type UnmuteError struct{ Cause error }

func (e *UnmuteError) Error() string { return "unmute: " + e.Cause.Error() }
func (e *UnmuteError) Unwrap() error { return e.Cause }

type ClientMuteError struct{ Cause error }

func (e *ClientMuteError) Error() string { return "client mute: " + e.Cause.Error() }
func (e *ClientMuteError) Unwrap() error { return e.Cause }

type ClientUnmuteError struct{ Cause error }

func (e *ClientUnmuteError) Error() string { return "client unmute: " + e.Cause.Error() }
func (e *ClientUnmuteError) Unwrap() error { return e.Cause }

type MuteVideoError struct{ Cause error }

func (e *MuteVideoError) Error() string { return "mute video: " + e.Cause.Error() }
func (e *MuteVideoError) Unwrap() error { return e.Cause }

type UnmuteVideoError struct{ Cause error }

func (e *UnmuteVideoError) Error() string { return "unmute video: " + e.Cause.Error() }
func (e *UnmuteVideoError) Unwrap() error { return e.Cause }

type SpotlightError struct{ Cause error }

func (e *SpotlightError) Error() string { return "spotlight: " + e.Cause.Error() }
func (e *SpotlightError) Unwrap() error { return e.Cause }

type UnspotlightError struct{ Cause error }

func (e *UnspotlightError) Error() string { return "unspotlight: " + e.Cause.Error() }
func (e *UnspotlightError) Unwrap() error { return e.Cause }

type RaiseHandError struct{ Cause error }

func (e *RaiseHandError) Error() string { return "raise hand: " + e.Cause.Error() }
func (e *RaiseHandError) Unwrap() error { return e.Cause }

type LowerHandError struct{ Cause error }

func (e *LowerHandError) Error() string { return "lower hand: " + e.Cause.Error() }
func (e *LowerHandError) Unwrap() error { return e.Cause }

type LowerAllHandsError struct{ Cause error }

func (e *LowerAllHandsError) Error() string { return "lower all hands: " + e.Cause.Error() }
func (e *LowerAllHandsError) Unwrap() error { return e.Cause }

type LockError struct{ Cause error }

func (e *LockError) Error() string { return "lock: " + e.Cause.Error() }
func (e *LockError) Unwrap() error { return e.Cause }

type UnlockError struct{ Cause error }

func (e *UnlockError) Error() string { return "unlock: " + e.Cause.Error() }
func (e *UnlockError) Unwrap() error { return e.Cause }

type MuteGuestsError struct{ Cause error }

func (e *MuteGuestsError) Error() string { return "mute guests: " + e.Cause.Error() }
func (e *MuteGuestsError) Unwrap() error { return e.Cause }

type UnmuteGuestsError struct{ Cause error }

func (e *UnmuteGuestsError) Error() string { return "unmute guests: " + e.Cause.Error() }
func (e *UnmuteGuestsError) Unwrap() error { return e.Cause }

type GuestsCanUnmuteError struct{ Cause error }

func (e *GuestsCanUnmuteError) Error() string { return "guests can unmute: " + e.Cause.Error() }
func (e *GuestsCanUnmuteError) Unwrap() error { return e.Cause }

type DisconnectAllError struct{ Cause error }

func (e *DisconnectAllError) Error() string { return "disconnect all: " + e.Cause.Error() }
func (e *DisconnectAllError) Unwrap() error { return e.Cause }
