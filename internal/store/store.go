// Package store owns the shared squad state and is the only component that
// mutates it. Every exported operation takes the store lock and performs its
// check-then-set atomically, so callers never observe a half-applied
// transition and repeated invocations never double-apply side effects.
// Serialization to the snapshot files lives in snapshot.go.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cyberguard/squadbot/internal/domain"
)

// State is the complete in-memory squad state. It is never handed out
// directly; operations copy what they return.
type State struct {
	Units map[domain.Unit]map[domain.MemberID]struct{}

	// RecentMissions is the display window over the mission archive,
	// newest last, capped at the configured maximum.
	RecentMissions []string
	Missions       map[string]*domain.Mission

	Callsigns    map[domain.MemberID]string
	Tickets      map[string]*domain.Ticket
	Activity     map[domain.MemberID]time.Time
	Pending      map[domain.MemberID]*domain.PendingAction
	ActiveTicket map[domain.MemberID]string

	// Routing maps a mission or ticket id to the delivery handle of the
	// interactive prompt sent to each commander. Weak cache only: used to
	// edit or strip buttons, never consulted for lifecycle decisions.
	Routing map[string]map[domain.MemberID]domain.DeliveryRef

	Subscribers map[domain.MemberID]struct{}
	Ready       map[domain.MemberID]struct{}

	// DisplayNames caches transport usernames. A present-but-empty entry
	// records a negative lookup so it is not retried.
	DisplayNames map[domain.MemberID]string
}

func newState() State {
	units := make(map[domain.Unit]map[domain.MemberID]struct{}, len(domain.AllUnits))
	for _, u := range domain.AllUnits {
		units[u] = map[domain.MemberID]struct{}{}
	}
	return State{
		Units:        units,
		Missions:     map[string]*domain.Mission{},
		Callsigns:    map[domain.MemberID]string{},
		Tickets:      map[string]*domain.Ticket{},
		Activity:     map[domain.MemberID]time.Time{},
		Pending:      map[domain.MemberID]*domain.PendingAction{},
		ActiveTicket: map[domain.MemberID]string{},
		Routing:      map[string]map[domain.MemberID]domain.DeliveryRef{},
		Subscribers:  map[domain.MemberID]struct{}{},
		Ready:        map[domain.MemberID]struct{}{},
		DisplayNames: map[domain.MemberID]string{},
	}
}

// Store serializes access to the shared state. Admins is the configured
// allow-list; members of it count as commanders without holding a tier.
type Store struct {
	mu     sync.Mutex
	state  State
	admins map[domain.MemberID]struct{}

	maxRecent int
	log       zerolog.Logger
}

// New returns an empty store seeded with the admin allow-list as
// senior-tier commanders.
func New(admins []domain.MemberID, maxRecent int) *Store {
	s := &Store{
		state:     newState(),
		admins:    map[domain.MemberID]struct{}{},
		maxRecent: maxRecent,
		log:       log.With().Str("component", "store").Logger(),
	}
	for _, id := range admins {
		s.admins[id] = struct{}{}
		s.addCommanderLocked(id, domain.UnitCenturions)
	}
	return s
}

// Touch records that the member was seen now. Observability only.
func (s *Store) Touch(id domain.MemberID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Activity[id] = at
}

// LastSeen returns the member's last recorded activity instant.
func (s *Store) LastSeen(id domain.MemberID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Activity[id]
	return t, ok
}

// Subscribe adds the member to the subscriber set and reports whether they
// were new.
func (s *Store) Subscribe(id domain.MemberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Subscribers[id]; ok {
		return false
	}
	s.state.Subscribers[id] = struct{}{}
	return true
}

// IsSubscriber reports whether the member has ever started the bot.
func (s *Store) IsSubscriber(id domain.MemberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.Subscribers[id]
	return ok
}

// MarkReady records readiness and reports whether the member was already
// marked.
func (s *Store) MarkReady(id domain.MemberID) (already bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Ready[id]; ok {
		return true
	}
	s.state.Ready[id] = struct{}{}
	return false
}

// IsReady reports whether the member has confirmed readiness.
func (s *Store) IsReady(id domain.MemberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.Ready[id]
	return ok
}

// SetCallsign stores the member's callsign. Validation happens upstream.
func (s *Store) SetCallsign(id domain.MemberID, callsign string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Callsigns[id] = callsign
}

// Callsign returns the member's callsign, if set.
func (s *Store) Callsign(id domain.MemberID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.Callsigns[id]
	return c, ok
}

// SetDisplayName caches the transport username for a member. An empty name
// records a negative lookup.
func (s *Store) SetDisplayName(id domain.MemberID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DisplayNames[id] = name
}

// DisplayName returns a human-readable handle for the member: the cached
// username prefixed with '@', or "ID: <n>" when unknown.
func (s *Store) DisplayName(id domain.MemberID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayNameLocked(id)
}

func (s *Store) displayNameLocked(id domain.MemberID) string {
	if name := s.state.DisplayNames[id]; name != "" {
		if name[0] == '@' {
			return name
		}
		return "@" + name
	}
	return fmt.Sprintf("ID: %d", id)
}

// SetPending installs the member's pending action, replacing any previous
// one. The replaced action, if different in kind, is returned so callers
// can log the overwrite (last action wins, see DESIGN.md).
func (s *Store) SetPending(id domain.MemberID, a domain.PendingAction) (replaced *domain.PendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.state.Pending[id]; ok && prev.Kind != a.Kind {
		cp := *prev
		replaced = &cp
		s.log.Warn().
			Int64("member_id", int64(id)).
			Str("previous", string(prev.Kind)).
			Str("next", string(a.Kind)).
			Msg("pending action overwritten")
	}
	cp := a
	s.state.Pending[id] = &cp
	return replaced
}

// Pending returns a copy of the member's outstanding action, if any.
func (s *Store) Pending(id domain.MemberID) (domain.PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.Pending[id]
	if !ok {
		return domain.PendingAction{}, false
	}
	return *a, true
}

// ClearPending removes the member's outstanding action.
func (s *Store) ClearPending(id domain.MemberID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Pending, id)
}

// sortedIDs returns the ids of a set in ascending order.
func sortedIDs(set map[domain.MemberID]struct{}) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copyMission(m *domain.Mission) domain.Mission {
	cp := *m
	cp.CompletedBy = make(map[domain.MemberID]struct{}, len(m.CompletedBy))
	for id := range m.CompletedBy {
		cp.CompletedBy[id] = struct{}{}
	}
	return cp
}

func copyTicket(t *domain.Ticket) domain.Ticket {
	cp := *t
	cp.Log = append([]domain.TicketEntry(nil), t.Log...)
	return cp
}
