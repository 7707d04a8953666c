package session

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/protocol"
	"github.com/openvc/confclient/internal/retry"
)

// Session is one authenticated conference membership: the bound protocol
// client, the credential store feeding it, and the join response that
// fixes participant identity, protocol version and capabilities for the
// session's lifetime.
type Session struct {
	Alias  domain.ConferenceAlias
	Client *protocol.Client
	Store  *Store
	Join   *protocol.TokenResponse
}

// New joins a conference: it requests a token under the shared retry
// policy and seeds the store with it. Pin and SSO challenges surface as
// the protocol's typed errors for the caller to resolve and rejoin.
func New(ctx context.Context, hc *http.Client, node string, alias domain.ConferenceAlias, opts protocol.RequestTokenOptions, logger zerolog.Logger) (*Session, error) {
	store := NewStore(domain.Token{})
	client := protocol.NewClient(hc, node, alias, store, logger)

	join, err := retry.Do(ctx, logger, "request_token", func(ctx context.Context) (*protocol.TokenResponse, error) {
		return client.RequestToken(ctx, opts)
	})
	if err != nil {
		return nil, err
	}

	store.Update(func(domain.Token) domain.Token {
		return domain.NewToken(join.Token, join.Expires.Duration(), time.Now())
	})
	logger.Info().Str("module", "session").Str("alias", string(alias)).
		Str("participant", string(join.ParticipantID)).Str("version", join.Version).Msg("joined conference")

	return &Session{Alias: alias, Client: client, Store: store, Join: join}, nil
}
