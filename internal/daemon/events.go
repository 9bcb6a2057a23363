package daemon

import (
	"log/slog"
	"sync"

	"github.com/amux-dev/amux/internal/proto"
)

// eventChanCap is the per-subscriber buffered channel capacity, matching the
// tokio broadcast channel capacity in original_source/amux-daemon/src/events.rs.
const eventChanCap = 256

// subscriber is one SubscribeEvents stream's delivery channel and optional
// repo filter.
type subscriber struct {
	ch     chan proto.Event
	repoID string // empty means no filter (receive everything)
	missed int    // events dropped since the last delivered Lagged notice
}

// EventBus is a fan-out broadcaster of typed domain events with per-
// subscriber repo filtering and non-fatal lag handling: a subscriber that
// falls behind receives a Lagged event and continues rather than being
// dropped or blocking the broadcaster.
type EventBus struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

func NewEventBus(log *slog.Logger) *EventBus {
	return &EventBus{log: log, subs: map[int]*subscriber{}}
}

// Subscribe registers a new listener, optionally filtered to one repo id,
// and returns its channel plus an unsubscribe func.
func (b *EventBus) Subscribe(repoID string) (<-chan proto.Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	sub := &subscriber{ch: make(chan proto.Event, eventChanCap), repoID: repoID}
	b.subs[id] = sub
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			close(s.ch)
			delete(b.subs, id)
		}
		b.mu.Unlock()
	}
	return sub.ch, unsub
}

// emit broadcasts ev to every subscriber whose filter matches. No
// subscribers is not an error; events that do not fit in a full subscriber
// channel are counted and reported as one Lagged event (with the count) on a
// later emit once the channel has room, rather than blocking here.
func (b *EventBus) emit(ev proto.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		if sub.repoID != "" && ev.RepoID != "" && ev.RepoID != sub.repoID {
			continue
		}
		if sub.missed > 0 {
			select {
			case sub.ch <- proto.Event{Kind: proto.EventLagged, Missed: sub.missed}:
				sub.missed = 0
			default:
			}
		}
		if sub.missed == 0 {
			select {
			case sub.ch <- ev:
				continue
			default:
			}
		}
		sub.missed++
		b.log.Warn("event subscriber lagging, dropping event", "subscriber", id, "kind", ev.Kind)
	}
}

func (b *EventBus) EmitSessionCreated(s proto.SessionInfo) {
	b.emit(proto.Event{Kind: proto.EventSessionCreated, Session: &s, RepoID: s.RepoID})
}

func (b *EventBus) EmitSessionDestroyed(sessionID, repoID, branch string) {
	b.emit(proto.Event{Kind: proto.EventSessionDestroyed, SessionID: sessionID, RepoID: repoID, Branch: branch})
}

func (b *EventBus) EmitSessionNameUpdated(sessionID, oldName, newName string) {
	b.emit(proto.Event{Kind: proto.EventSessionNameUpdated, SessionID: sessionID, OldName: oldName, NewName: newName})
}

func (b *EventBus) EmitSessionStatusChanged(sessionID, oldStatus, newStatus string) {
	b.emit(proto.Event{Kind: proto.EventSessionStatusChange, SessionID: sessionID, OldStatus: oldStatus, NewStatus: newStatus})
}

func (b *EventBus) EmitWorktreeAdded(w proto.WorktreeInfo) {
	b.emit(proto.Event{Kind: proto.EventWorktreeAdded, Worktree: &w, RepoID: w.RepoID})
}

func (b *EventBus) EmitWorktreeRemoved(repoID, branch string) {
	b.emit(proto.Event{Kind: proto.EventWorktreeRemoved, RepoID: repoID, Branch: branch})
}

func (b *EventBus) EmitGitStatusChanged(repoID, branch string) {
	b.emit(proto.Event{Kind: proto.EventGitStatusChanged, RepoID: repoID, Branch: branch})
}
