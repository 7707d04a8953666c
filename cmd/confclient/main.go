package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openvc/confclient/internal/config"
	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/feed"
	"github.com/openvc/confclient/internal/messenger"
	"github.com/openvc/confclient/internal/protocol"
	"github.com/openvc/confclient/internal/roster"
	"github.com/openvc/confclient/internal/session"
	"github.com/openvc/confclient/internal/signaling"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	sess, err := session.New(ctx, hc, cfg.Node, domain.ConferenceAlias(cfg.Conference), protocol.RequestTokenOptions{
		DisplayName: cfg.DisplayName,
		Pin:         cfg.Pin,
		CallTag:     cfg.CallTag,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to join conference")
	}

	refresher := session.NewRefresher(sess.Client, sess.Store, log.Logger)
	refresher.Start(ctx)

	events := feed.New(feed.OpenerFunc(func(ctx context.Context) (feed.Stream, error) {
		return sess.Client.Events(ctx)
	}), log.Logger)
	events.Start(ctx)

	r := roster.New(sess.Client, roster.Identity{
		SelfID:              sess.Join.ParticipantID,
		ParentID:            sess.Join.ParentID,
		Version:             sess.Join.Version,
		ClientMuteSupported: sess.Join.ClientMute,
	}, log.Logger)
	r.Watch(func(snap roster.Snapshot) {
		log.Info().Int("participants", len(snap.Participants)).
			Bool("locked", snap.Locked).Str("presenter", string(snap.PresenterID)).
			Msg("roster")
	})
	rosterEvents, stopRoster := events.Subscribe()
	defer stopRoster()
	go r.Run(ctx, rosterEvents)

	sig := signaling.New(sess.Client, sess.Join.ParticipantID, log.Logger)
	sigEvents, stopSig := events.Subscribe()
	defer stopSig()
	go sig.Run(ctx, sigEvents)
	go func() {
		for ev := range sig.Events() {
			log.Info().Str("module", "main").Type("event", ev).Msg("signaling instruction")
		}
	}()

	msgr := messenger.New(sess.Client, sess.Join.ParticipantID, cfg.DisplayName, log.Logger)
	msgEvents, stopMsgr := events.Subscribe()
	defer stopMsgr()
	go msgr.Run(ctx, msgEvents)
	go func() {
		for msg := range msgr.Messages() {
			log.Info().Str("from", msg.SenderName).Str("payload", msg.Payload).Msg("message")
		}
	}()

	referer := session.NewReferer(hc, cfg.Node, cfg.DisplayName, log.Logger)
	mainEvents, stopMain := events.Subscribe()
	defer stopMain()

	log.Info().Str("conference", cfg.Conference).Msg("session up")
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case ev, ok := <-mainEvents:
			if !ok {
				running = false
				break
			}
			switch e := ev.(type) {
			case protocol.Disconnect:
				log.Info().Str("reason", e.Reason).Msg("disconnected by server")
				running = false
			case protocol.Refer:
				next, err := referer.Refer(ctx, e)
				if err != nil {
					log.Error().Err(err).Msg("transfer failed")
					continue
				}
				log.Info().Str("alias", string(next.Alias)).Msg("transferred; demo stops here")
				running = false
			}
		}
	}

	log.Info().Msg("leaving conference")
	events.Stop()
	refresher.Stop()
	log.Info().Msg("session closed")
}
