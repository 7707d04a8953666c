// Package feed owns the single upstream push-stream subscription and
// republishes its events to every consumer in arrival order.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/protocol"
)

// Stream is one open upstream subscription.
type Stream interface {
	Next() (protocol.Event, error)
	Close() error
}

// Opener creates upstream subscriptions. protocol.Client satisfies it
// through OpenerFunc.
type Opener interface {
	Open(ctx context.Context) (Stream, error)
}

type OpenerFunc func(ctx context.Context) (Stream, error)

func (f OpenerFunc) Open(ctx context.Context) (Stream, error) { return f(ctx) }

const maxReconnectDelay = 5 * time.Second

// reconnectDelay grows linearly with consecutive failures and is capped.
func reconnectDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}

type subscriber struct {
	ch   chan protocol.Event
	quit chan struct{}
}

// Feed recreates the upstream subscription on loss and broadcasts every
// decoded event to all current subscribers. Late subscribers do not see
// events emitted before they attached.
type Feed struct {
	open Opener
	log  zerolog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int

	cancel context.CancelFunc
	done   chan struct{}

	// sleep is swapped in tests to observe the reconnect schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(open Opener, logger zerolog.Logger) *Feed {
	return &Feed{
		open:  open,
		log:   logger,
		subs:  make(map[int]*subscriber),
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Subscribe attaches a consumer. The returned cancel detaches it; the
// channel is closed when the feed stops. Consumers must drain promptly:
// delivery is ordered and blocking past a small buffer.
func (f *Feed) Subscribe() (<-chan protocol.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	s := &subscriber{ch: make(chan protocol.Event, 16), quit: make(chan struct{})}
	f.subs[id] = s

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(s.quit)
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(s.ch)
			}
		})
	}
	return s.ch, cancel
}

// Start launches the consume/reconnect loop.
func (f *Feed) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(ctx)
}

// Stop ends the loop without rescheduling a reconnect and closes all
// subscriber channels.
func (f *Feed) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.subs {
		delete(f.subs, id)
		close(s.ch)
	}
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	attempts := 0
	for {
		stream, err := f.open.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempts++
			delay := reconnectDelay(attempts)
			f.log.Warn().Str("module", "feed").Int("attempt", attempts).Dur("delay", delay).Err(err).Msg("stream open failed")
			if f.sleep(ctx, delay) != nil {
				return
			}
			continue
		}

		attempts = 0
		f.log.Info().Str("module", "feed").Msg("stream open")
		err = f.consume(ctx, stream)
		stream.Close()
		if ctx.Err() != nil {
			return
		}

		attempts++
		delay := reconnectDelay(attempts)
		f.log.Warn().Str("module", "feed").Int("attempt", attempts).Dur("delay", delay).Err(err).Msg("stream lost")
		if f.sleep(ctx, delay) != nil {
			return
		}
	}
}

// consume drains one open stream. Some servers emit a meaningless
// presentation-stop right after the stream opens; the first one seen
// before any presentation-start is dropped so consumers never act on it.
func (f *Feed) consume(ctx context.Context, stream Stream) error {
	sawStart := false
	ghostArmed := true
	for {
		ev, err := stream.Next()
		if err != nil {
			return err
		}
		switch ev.(type) {
		case protocol.PresentationStart:
			sawStart = true
		case protocol.PresentationStop:
			if ghostArmed && !sawStart {
				ghostArmed = false
				f.log.Debug().Str("module", "feed").Msg("suppressed bootstrap presentation_stop")
				continue
			}
		}
		if !f.publish(ctx, ev) {
			return ctx.Err()
		}
	}
}

func (f *Feed) publish(ctx context.Context, ev protocol.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		select {
		case s.ch <- ev:
		case <-s.quit:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
