package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/protocol"
)

// referCallTag marks transferred sessions so the target conference can
// correlate the incoming leg with the transfer.
const referCallTag = "refer"

// ReferError wraps any failure to complete a conference transfer.
type ReferError struct {
	Cause error
}

func (e *ReferError) Error() string { return "refer: " + e.Cause.Error() }
func (e *ReferError) Unwrap() error { return e.Cause }

// Referer reacts to transfer instructions by joining the target
// conference with the one-time token the event carries.
type Referer struct {
	http        *http.Client
	node        string
	displayName string
	log         zerolog.Logger
}

func NewReferer(hc *http.Client, node, displayName string, logger zerolog.Logger) *Referer {
	return &Referer{http: hc, node: node, displayName: displayName, log: logger}
}

// Refer produces the session context for the conference named by the
// event. Cancellation propagates unwrapped; every other failure comes
// back as a ReferError.
func (r *Referer) Refer(ctx context.Context, ev protocol.Refer) (*Session, error) {
	r.log.Info().Str("module", "session").Str("alias", string(ev.Alias)).Msg("transferring to conference")

	next, err := New(ctx, r.http, r.node, ev.Alias, protocol.RequestTokenOptions{
		DisplayName:   r.displayName,
		IncomingToken: ev.Token,
		CallTag:       referCallTag,
	}, r.log)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &ReferError{Cause: err}
	}
	return next, nil
}
