package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/retry"
)

// API is the slice of the protocol client the roster's actions need.
type API interface {
	Mute(ctx context.Context, id domain.ParticipantID) error
	Unmute(ctx context.Context, id domain.ParticipantID) error
	ClientMute(ctx context.Context, id domain.ParticipantID) error
	ClientUnmute(ctx context.Context, id domain.ParticipantID) error
	MuteVideo(ctx context.Context, id domain.ParticipantID) error
	UnmuteVideo(ctx context.Context, id domain.ParticipantID) error
	Spotlight(ctx context.Context, id domain.ParticipantID) error
	Unspotlight(ctx context.Context, id domain.ParticipantID) error
	RaiseHand(ctx context.Context, id domain.ParticipantID) error
	LowerHand(ctx context.Context, id domain.ParticipantID) error
	SetRole(ctx context.Context, id domain.ParticipantID, role domain.Role) error
	Admit(ctx context.Context, id domain.ParticipantID) error
	DisconnectParticipant(ctx context.Context, id domain.ParticipantID) error

	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	MuteGuests(ctx context.Context) error
	UnmuteGuests(ctx context.Context) error
	SetGuestsCanUnmute(ctx context.Context, allowed bool) error
	DisconnectAll(ctx context.Context) error
	LowerAllHands(ctx context.Context) error
}

// target resolves the participant an action applies to: the explicit id
// when given, the version-gated self/parent otherwise. The id must have
// an action handle.
func (r *Roster) target(explicit domain.ParticipantID, muteFamily bool) (domain.ParticipantID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := explicit
	if id == "" {
		id = r.actorID(muteFamily)
	}
	if _, ok := r.handles[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	return id, nil
}

// wrapAction applies the action-specific wrapping, letting cancellation
// through untouched so it always propagates.
func wrapAction(err error, wrap func(error) error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return wrap(err)
}

// Participant actions take an explicit target id, or act as self/parent
// when target is empty.

func (r *Roster) Admit(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "admit", r.api.Admit,
		func(err error) error { return &AdmitError{Cause: err} })
}

func (r *Roster) Disconnect(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "disconnect", r.api.DisconnectParticipant,
		func(err error) error { return &DisconnectError{Cause: err} })
}

func (r *Roster) MakeHost(ctx context.Context, target domain.ParticipantID) error {
	return r.setRole(ctx, target, domain.RoleHost)
}

func (r *Roster) MakeGuest(ctx context.Context, target domain.ParticipantID) error {
	return r.setRole(ctx, target, domain.RoleGuest)
}

func (r *Roster) setRole(ctx context.Context, target domain.ParticipantID, role domain.Role) error {
	id, err := r.target(target, false)
	if err != nil {
		return &RoleError{Cause: err}
	}
	err = retry.DoVoid(ctx, r.log, "role", func(ctx context.Context) error {
		return r.api.SetRole(ctx, id, role)
	})
	return wrapAction(err, func(err error) error { return &RoleError{Cause: err} })
}

func (r *Roster) Mute(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, true, "mute", r.api.Mute,
		func(err error) error { return &MuteError{Cause: err} })
}

func (r *Roster) Unmute(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, true, "unmute", r.api.Unmute,
		func(err error) error { return &UnmuteError{Cause: err} })
}

// ClientMute reports the local client's own mute state. On servers
// without client-mute support it falls back to the legacy mute call.
func (r *Roster) ClientMute(ctx context.Context, target domain.ParticipantID) error {
	call := r.api.ClientMute
	if !r.id.ClientMuteSupported {
		call = r.api.Mute
	}
	return r.participantAction(ctx, target, true, "client_mute", call,
		func(err error) error { return &ClientMuteError{Cause: err} })
}

// ClientUnmute additionally issues the legacy unmute call on servers that
// support client mute, awaiting both, so older and newer server behavior
// stay compatible at the same time.
func (r *Roster) ClientUnmute(ctx context.Context, target domain.ParticipantID) error {
	id, err := r.target(target, true)
	if err != nil {
		return &ClientUnmuteError{Cause: err}
	}
	if !r.id.ClientMuteSupported {
		err = retry.DoVoid(ctx, r.log, "unmute", func(ctx context.Context) error {
			return r.api.Unmute(ctx, id)
		})
		return wrapAction(err, func(err error) error { return &ClientUnmuteError{Cause: err} })
	}

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		return retry.DoVoid(ctx, r.log, "client_unmute", func(ctx context.Context) error {
			return r.api.ClientUnmute(ctx, id)
		})
	})
	p.Go(func(ctx context.Context) error {
		return retry.DoVoid(ctx, r.log, "unmute", func(ctx context.Context) error {
			return r.api.Unmute(ctx, id)
		})
	})
	err = p.Wait()
	return wrapAction(err, func(err error) error { return &ClientUnmuteError{Cause: err} })
}

func (r *Roster) MuteVideo(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "video_muted", r.api.MuteVideo,
		func(err error) error { return &MuteVideoError{Cause: err} })
}

func (r *Roster) UnmuteVideo(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "video_unmuted", r.api.UnmuteVideo,
		func(err error) error { return &UnmuteVideoError{Cause: err} })
}

func (r *Roster) Spotlight(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "spotlighton", r.api.Spotlight,
		func(err error) error { return &SpotlightError{Cause: err} })
}

func (r *Roster) Unspotlight(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "spotlightoff", r.api.Unspotlight,
		func(err error) error { return &UnspotlightError{Cause: err} })
}

func (r *Roster) RaiseHand(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "buzz", r.api.RaiseHand,
		func(err error) error { return &RaiseHandError{Cause: err} })
}

func (r *Roster) LowerHand(ctx context.Context, target domain.ParticipantID) error {
	return r.participantAction(ctx, target, false, "clearbuzz", r.api.LowerHand,
		func(err error) error { return &LowerHandError{Cause: err} })
}

func (r *Roster) participantAction(
	ctx context.Context,
	target domain.ParticipantID,
	muteFamily bool,
	op string,
	call func(context.Context, domain.ParticipantID) error,
	wrap func(error) error,
) error {
	id, err := r.target(target, muteFamily)
	if err != nil {
		return wrap(err)
	}
	err = retry.DoVoid(ctx, r.log, op, func(ctx context.Context) error {
		return call(ctx, id)
	})
	return wrapAction(err, wrap)
}

// Conference-wide actions.

func (r *Roster) Lock(ctx context.Context) error {
	return r.conferenceAction(ctx, "lock", r.api.Lock,
		func(err error) error { return &LockError{Cause: err} })
}

func (r *Roster) Unlock(ctx context.Context) error {
	return r.conferenceAction(ctx, "unlock", r.api.Unlock,
		func(err error) error { return &UnlockError{Cause: err} })
}

func (r *Roster) MuteAllGuests(ctx context.Context) error {
	return r.conferenceAction(ctx, "muteguests", r.api.MuteGuests,
		func(err error) error { return &MuteGuestsError{Cause: err} })
}

func (r *Roster) UnmuteAllGuests(ctx context.Context) error {
	return r.conferenceAction(ctx, "unmuteguests", r.api.UnmuteGuests,
		func(err error) error { return &UnmuteGuestsError{Cause: err} })
}

func (r *Roster) AllowGuestsToUnmute(ctx context.Context) error {
	return r.setGuestsCanUnmute(ctx, true)
}

func (r *Roster) DisallowGuestsToUnmute(ctx context.Context) error {
	return r.setGuestsCanUnmute(ctx, false)
}

func (r *Roster) setGuestsCanUnmute(ctx context.Context, allowed bool) error {
	err := retry.DoVoid(ctx, r.log, "set_guests_can_unmute", func(ctx context.Context) error {
		return r.api.SetGuestsCanUnmute(ctx, allowed)
	})
	return wrapAction(err, func(err error) error { return &GuestsCanUnmuteError{Cause: err} })
}

func (r *Roster) DisconnectAll(ctx context.Context) error {
	return r.conferenceAction(ctx, "disconnect_all", r.api.DisconnectAll,
		func(err error) error { return &DisconnectAllError{Cause: err} })
}

func (r *Roster) LowerAllHands(ctx context.Context) error {
	return r.conferenceAction(ctx, "clearallbuzz", r.api.LowerAllHands,
		func(err error) error { return &LowerAllHandsError{Cause: err} })
}

func (r *Roster) conferenceAction(
	ctx context.Context,
	op string,
	call func(context.Context) error,
	wrap func(error) error,
) error {
	err := retry.DoVoid(ctx, r.log, op, call)
	return wrapAction(err, wrap)
}
