// Package roster maintains the participant directory and conference-wide
// flags from the ordered event feed, and exposes the participant and
// conference actions.
package roster

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/domain"
	"github.com/openvc/confclient/internal/protocol"
)

// Identity fixes who this client is inside the conference. ParentID is
// set when the participant joined through another participant (for
// example a device leg under a user leg).
type Identity struct {
	SelfID              domain.ParticipantID
	ParentID            domain.ParticipantID
	Version             string
	ClientMuteSupported bool
}

// Snapshot is one consistent, read-only view of the roster. Observers
// only ever see committed snapshots, never a directory mid-resync.
type Snapshot struct {
	Participants    map[domain.ParticipantID]domain.Participant
	SelfID          domain.ParticipantID
	PresenterID     domain.ParticipantID
	Locked          bool
	AllGuestsMuted  bool
	GuestsCanUnmute *bool
}

type state int

const (
	stateIdle state = iota
	stateSyncing
)

// handle binds one participant id to the action endpoints. Handles exist
// for ids the roster knows about; acting on anything else is an error.
type handle struct {
	id domain.ParticipantID
}

// Roster is the event-sourced participant directory. All mutation happens
// on the single event-consuming task through Apply; the mutex covers the
// whole read-modify-publish sequence per event, so observers and the
// query views always see a consistent directory.
type Roster struct {
	api API
	id  Identity
	log zerolog.Logger

	mu        sync.Mutex
	state     state
	directory map[domain.ParticipantID]domain.Participant
	handles   map[domain.ParticipantID]handle
	presenter domain.ParticipantID
	status    domain.ConferenceStatus

	watchers  map[int]func(Snapshot)
	nextWatch int
}

func New(api API, id Identity, logger zerolog.Logger) *Roster {
	r := &Roster{
		api:       api,
		id:        id,
		log:       logger,
		directory: make(map[domain.ParticipantID]domain.Participant),
		handles:   make(map[domain.ParticipantID]handle),
		watchers:  make(map[int]func(Snapshot)),
	}
	r.seedHandles()
	return r
}

// seedHandles registers the a-priori known ids. Some protocol versions
// never emit an explicit create for self or parent, so their handles must
// exist before any create event arrives.
func (r *Roster) seedHandles() {
	r.handles[r.id.SelfID] = handle{id: r.id.SelfID}
	if r.id.ParentID != "" {
		r.handles[r.id.ParentID] = handle{id: r.id.ParentID}
	}
}

// Watch registers an observer called with each committed snapshot. The
// callback runs on the event-consuming task and must return promptly.
// The returned function unregisters it.
func (r *Roster) Watch(fn func(Snapshot)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.watchers, id)
	}
}

// Run drains the event subscription until it closes or ctx is cancelled.
func (r *Roster) Run(ctx context.Context, events <-chan protocol.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Apply(ev)
		}
	}
}

// Apply folds one event into the directory. During a sync transaction
// mutations accumulate silently and the snapshot is published once on
// sync-end; outside a transaction every mutating event publishes.
func (r *Roster) Apply(ev protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case protocol.ParticipantSyncBegin:
		r.state = stateSyncing
		r.directory = make(map[domain.ParticipantID]domain.Participant)
		r.handles = make(map[domain.ParticipantID]handle)
		r.seedHandles()
	case protocol.ParticipantSyncEnd:
		r.state = stateIdle
		r.publishLocked()
	case protocol.ParticipantCreate:
		r.upsertLocked(e.Participant)
		r.publishIfIdleLocked()
	case protocol.ParticipantUpdate:
		r.upsertLocked(e.Participant)
		r.publishIfIdleLocked()
	case protocol.ParticipantDelete:
		delete(r.directory, e.ID)
		if e.ID != r.id.SelfID && e.ID != r.id.ParentID {
			delete(r.handles, e.ID)
		}
		r.publishIfIdleLocked()
	case protocol.Stage:
		r.applyStageLocked(e)
		r.publishIfIdleLocked()
	case protocol.ConferenceUpdate:
		r.status = domain.ConferenceStatus{
			Locked:          e.Locked,
			AllGuestsMuted:  e.AllGuestsMuted,
			GuestsCanUnmute: e.GuestsCanUnmute,
		}
		r.publishIfIdleLocked()
	case protocol.PresentationStart:
		r.presenter = e.PresenterID
		r.publishIfIdleLocked()
	case protocol.PresentationStop:
		r.presenter = ""
		r.publishIfIdleLocked()
	}
}

// upsertLocked installs a server record, preserving the locally derived
// speaking flag across updates.
func (r *Roster) upsertLocked(p domain.Participant) {
	if prev, ok := r.directory[p.ID]; ok {
		p.Speaking = prev.Speaking
	}
	r.directory[p.ID] = p
	r.handles[p.ID] = handle{id: p.ID}
}

// applyStageLocked marks the listed ids with voice activity as speaking
// and everyone else as silent. Unknown speaker ids are ignored; stage
// events never create provisional records.
func (r *Roster) applyStageLocked(e protocol.Stage) {
	speaking := make(map[domain.ParticipantID]bool, len(e.Speakers))
	for _, s := range e.Speakers {
		if s.VAD > 0 {
			speaking[s.ID] = true
		}
	}
	for id, p := range r.directory {
		if p.Speaking != speaking[id] {
			p.Speaking = speaking[id]
			r.directory[id] = p
		}
	}
}

func (r *Roster) publishIfIdleLocked() {
	if r.state == stateIdle {
		r.publishLocked()
	}
}

func (r *Roster) publishLocked() {
	snap := r.snapshotLocked()
	for _, fn := range r.watchers {
		fn(snap)
	}
}

func (r *Roster) snapshotLocked() Snapshot {
	participants := make(map[domain.ParticipantID]domain.Participant, len(r.directory))
	for id, p := range r.directory {
		participants[id] = p
	}
	return Snapshot{
		Participants:    participants,
		SelfID:          r.actorID(false),
		PresenterID:     r.presenter,
		Locked:          r.status.Locked,
		AllGuestsMuted:  r.status.AllGuestsMuted,
		GuestsCanUnmute: r.status.GuestsCanUnmute,
	}
}

// Participants returns the directory as a list ordered by display name.
func (r *Roster) Participants() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Participant, 0, len(r.directory))
	for _, p := range r.directory {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Me returns the record this client acts as, when the directory has it.
func (r *Roster) Me() (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.directory[r.actorID(false)]
	return p, ok
}

// Presenter returns the participant named by the most recent
// presentation-start, cleared again on presentation-stop.
func (r *Roster) Presenter() (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.presenter == "" {
		return domain.Participant{}, false
	}
	p, ok := r.directory[r.presenter]
	return p, ok
}

func (r *Roster) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Locked
}

func (r *Roster) AllGuestsMuted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.AllGuestsMuted
}

// GuestsCanUnmute returns nil while the server has not reported the
// policy; callers must not read nil as false.
func (r *Roster) GuestsCanUnmute() *bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.GuestsCanUnmute
}

// actorID resolves which id this client acts as. Before protocol version
// 35.1 a parent acting through a child gets some actions rejected, so the
// client always acts as itself. The mute family keeps its own
// parent-preference rule independent of version for backward-compatible
// mute semantics.
func (r *Roster) actorID(muteFamily bool) domain.ParticipantID {
	if r.id.ParentID == "" {
		return r.id.SelfID
	}
	if muteFamily || versionAtLeast(r.id.Version, actOnParentVersion) {
		return r.id.ParentID
	}
	return r.id.SelfID
}
