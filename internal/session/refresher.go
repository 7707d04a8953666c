package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/protocol"
)

// TokenAPI is the slice of the protocol client the refresher needs.
type TokenAPI interface {
	RefreshToken(ctx context.Context) (*protocol.TokenResponse, error)
	ReleaseToken(ctx context.Context) error
}

const releaseTimeout = 5 * time.Second

// Refresher re-issues the session credential at half its lifetime. A
// failed refresh keeps the previous token in the store and waits for the
// next tick; the token may still be valid and the next attempt can win.
type Refresher struct {
	api   TokenAPI
	store *Store
	log   zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(api TokenAPI, store *Store, logger zerolog.Logger) *Refresher {
	return &Refresher{api: api, store: store, log: logger}
}

// Start begins the refresh schedule. The first refresh fires after half
// of the current token's lifetime.
func (r *Refresher) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)
	timer := time.NewTimer(r.store.Get().RefreshAfter())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.refresh(ctx)
			timer.Reset(r.store.Get().RefreshAfter())
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	resp, err := r.api.RefreshToken(ctx)
	if err != nil {
		r.log.Warn().Str("module", "session").Err(err).Msg("token refresh failed, keeping previous token")
		return
	}
	r.store.Update(func(domain.Token) domain.Token {
		return domain.NewToken(resp.Token, resp.Expires.Duration(), time.Now())
	})
	r.log.Debug().Str("module", "session").Dur("expires", resp.Expires.Duration()).Msg("token refreshed")
}

// Stop cancels the schedule and fires one best-effort release call. The
// release outcome is ignored: the token expires on its own either way.
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := r.api.ReleaseToken(ctx); err != nil {
		r.log.Debug().Str("module", "session").Err(err).Msg("release token failed")
	}
}
