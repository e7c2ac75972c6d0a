package store

import (
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

// IsCommander reports whether the member is in the senior tier or the
// configured admin allow-list.
func (s *Store) IsCommander(id domain.MemberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; ok {
		return true
	}
	_, ok := s.state.Units[domain.UnitCenturions][id]
	return ok
}

// InUnit reports membership of a single tier.
func (s *Store) InUnit(id domain.MemberID, u domain.Unit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.Units[u][id]
	return ok
}

// UnitsOf returns the tiers the member belongs to. Tiers are mutually
// exclusive, so the result holds at most one element, but the set form is
// kept because legacy snapshots may carry duplicates.
func (s *Store) UnitsOf(id domain.MemberID) []domain.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Unit
	for _, u := range domain.AllUnits {
		if _, ok := s.state.Units[u][id]; ok {
			out = append(out, u)
		}
	}
	return out
}

// AddMember places the member into the given tier, removing them from any
// other tier first. Activity and subscription are stamped so freshly added
// members immediately receive fan-outs.
func (s *Store) AddMember(id domain.MemberID, u domain.Unit, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range domain.AllUnits {
		if other != u {
			delete(s.state.Units[other], id)
		}
	}
	s.state.Units[u][id] = struct{}{}
	s.state.Activity[id] = at
	s.state.Subscribers[id] = struct{}{}
	s.log.Info().Int64("member_id", int64(id)).Str("unit", string(u)).Msg("member added to unit")
}

// addCommanderLocked seeds an admin into the senior tier at construction.
func (s *Store) addCommanderLocked(id domain.MemberID, u domain.Unit) {
	s.state.Units[u][id] = struct{}{}
	s.state.Subscribers[id] = struct{}{}
}

// RemoveFromUnit removes the member from one tier and reports whether they
// were in it. Unknown members are a no-op.
func (s *Store) RemoveFromUnit(id domain.MemberID, u domain.Unit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Units[u][id]; !ok {
		return false
	}
	delete(s.state.Units[u], id)
	return true
}

// UnitMembers returns the members of a tier in ascending id order.
func (s *Store) UnitMembers(u domain.Unit) []domain.MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.state.Units[u])
}

// UnitSizes returns the member count per tier.
func (s *Store) UnitSizes() map[domain.Unit]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Unit]int, len(domain.AllUnits))
	for _, u := range domain.AllUnits {
		out[u] = len(s.state.Units[u])
	}
	return out
}

// TargetUnion returns the distinct members across the given tiers, sorted.
// Quorum checks call this live rather than against a snapshot taken at
// mission creation, so membership changes move the bar.
func (s *Store) TargetUnion(units []domain.Unit) []domain.MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetUnionLocked(units)
}

func (s *Store) targetUnionLocked(units []domain.Unit) []domain.MemberID {
	set := map[domain.MemberID]struct{}{}
	for _, u := range units {
		for id := range s.state.Units[u] {
			set[id] = struct{}{}
		}
	}
	return sortedIDs(set)
}

// Commanders returns the senior tier united with the admin allow-list,
// sorted. This is the recipient set for approval and ticket prompts.
func (s *Store) Commanders() []domain.MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := map[domain.MemberID]struct{}{}
	for id := range s.state.Units[domain.UnitCenturions] {
		set[id] = struct{}{}
	}
	for id := range s.admins {
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}

// Deregister removes every trace of a member: tiers, readiness,
// subscription, callsign, activity, pending action, display name, the
// active-ticket index, routing entries, tickets they own or were assigned,
// and their completion credit on every archived mission. Triggered when the
// transport reports the recipient permanently unreachable.
func (s *Store) Deregister(id domain.MemberID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range domain.AllUnits {
		delete(s.state.Units[u], id)
	}
	delete(s.state.Ready, id)
	delete(s.state.Subscribers, id)
	delete(s.state.Callsigns, id)
	delete(s.state.Activity, id)
	delete(s.state.Pending, id)
	delete(s.state.ActiveTicket, id)
	delete(s.state.DisplayNames, id)

	for entityID, refs := range s.state.Routing {
		delete(refs, id)
		if len(refs) == 0 {
			delete(s.state.Routing, entityID)
		}
	}

	for ticketID, t := range s.state.Tickets {
		if t.Owner == id || t.AssignedTo == id {
			delete(s.state.Tickets, ticketID)
			if s.state.ActiveTicket[t.Owner] == ticketID {
				delete(s.state.ActiveTicket, t.Owner)
			}
		}
	}

	for _, m := range s.state.Missions {
		delete(m.CompletedBy, id)
	}

	s.log.Warn().Int64("member_id", int64(id)).Msg("member deregistered")
}
