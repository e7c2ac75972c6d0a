package store

import (
	"sort"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

// CreateTicket opens a new ticket for the owner unless they already have a
// non-closed one, in which case the existing ticket is returned with
// created=false. The at-most-one-active invariant is enforced here, inside
// the lock, not by the caller.
func (s *Store) CreateTicket(owner domain.MemberID, text string, at time.Time) (t domain.Ticket, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.state.ActiveTicket[owner]; ok {
		if existing, found := s.state.Tickets[existingID]; found && existing.Status != domain.TicketClosed {
			return copyTicket(existing), false
		}
		// Stale index entry for a closed or vanished ticket.
		delete(s.state.ActiveTicket, owner)
	}
	nt := &domain.Ticket{
		ID:        domain.NewTicketID(owner, at),
		Owner:     owner,
		Status:    domain.TicketOpen,
		CreatedAt: at,
		UpdatedAt: at,
		Log: []domain.TicketEntry{
			{From: domain.EntryFromMember, Text: text, At: at},
		},
	}
	s.state.Tickets[nt.ID] = nt
	s.state.ActiveTicket[owner] = nt.ID
	return copyTicket(nt), true
}

// Ticket returns a copy of the ticket.
func (s *Store) Ticket(id string) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tickets[id]
	if !ok {
		return domain.Ticket{}, ErrNotFound
	}
	return copyTicket(t), nil
}

// TakeTicket assigns an open ticket to a commander. A take on a ticket that
// is no longer open reports ErrTicketTaken so a second click is harmless.
func (s *Store) TakeTicket(id string, commander domain.MemberID, at time.Time) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tickets[id]
	if !ok {
		return domain.Ticket{}, ErrNotFound
	}
	if t.Status != domain.TicketOpen {
		return domain.Ticket{}, ErrTicketTaken
	}
	t.Status = domain.TicketInProgress
	t.AssignedTo = commander
	t.AssignedAt = at
	t.UpdatedAt = at
	return copyTicket(t), nil
}

// AppendFromOwner logs a follow-up message from the ticket owner.
func (s *Store) AppendFromOwner(id string, text string, at time.Time) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tickets[id]
	if !ok {
		return domain.Ticket{}, ErrNotFound
	}
	if t.Status == domain.TicketClosed {
		return domain.Ticket{}, ErrTicketClosed
	}
	t.Log = append(t.Log, domain.TicketEntry{From: domain.EntryFromMember, Text: text, At: at})
	t.UpdatedAt = at
	return copyTicket(t), nil
}

// AppendFromCommander logs a response from a commander.
func (s *Store) AppendFromCommander(id string, commander domain.MemberID, text string, at time.Time) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tickets[id]
	if !ok {
		return domain.Ticket{}, ErrNotFound
	}
	if t.Status == domain.TicketClosed {
		return domain.Ticket{}, ErrTicketClosed
	}
	t.Log = append(t.Log, domain.TicketEntry{From: domain.EntryFromCommander, Author: commander, Text: text, At: at})
	t.UpdatedAt = at
	return copyTicket(t), nil
}

// CloseTicket transitions a ticket to closed and clears the owner's
// active-ticket index entry. Closing an already-closed ticket reports
// ErrTicketClosed and changes nothing.
func (s *Store) CloseTicket(id string, at time.Time) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tickets[id]
	if !ok {
		return domain.Ticket{}, ErrNotFound
	}
	if t.Status == domain.TicketClosed {
		return domain.Ticket{}, ErrTicketClosed
	}
	t.Status = domain.TicketClosed
	t.ClosedAt = at
	t.UpdatedAt = at
	if s.state.ActiveTicket[t.Owner] == id {
		delete(s.state.ActiveTicket, t.Owner)
	}
	return copyTicket(t), nil
}

// ActiveTicketOf returns the owner's current non-closed ticket, if any.
func (s *Store) ActiveTicketOf(owner domain.MemberID) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.state.ActiveTicket[owner]
	if !ok {
		return domain.Ticket{}, false
	}
	t, found := s.state.Tickets[id]
	if !found || t.Status == domain.TicketClosed {
		return domain.Ticket{}, false
	}
	return copyTicket(t), true
}

// TicketAssignedTo returns the in-progress ticket assigned to the
// commander, if exactly such a ticket exists. Used by the dialog relay to
// route a commander's plain text.
func (s *Store) TicketAssignedTo(commander domain.MemberID) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.state.Tickets))
	for id := range s.state.Tickets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := s.state.Tickets[id]
		if t.AssignedTo == commander && t.Status == domain.TicketInProgress {
			return copyTicket(t), true
		}
	}
	return domain.Ticket{}, false
}

// OpenTickets returns every non-closed ticket, oldest first.
func (s *Store) OpenTickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.state.Tickets {
		if t.Status != domain.TicketClosed {
			out = append(out, copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// TicketCounts tallies non-closed tickets by status.
func (s *Store) TicketCounts() (open, inProgress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.state.Tickets {
		switch t.Status {
		case domain.TicketOpen:
			open++
		case domain.TicketInProgress:
			inProgress++
		}
	}
	return open, inProgress
}

// ExpireTickets force-closes every non-closed ticket whose last update is
// before the cutoff and returns the closed copies. A second sweep with the
// same cutoff is a no-op for already-closed tickets.
func (s *Store) ExpireTickets(cutoff, at time.Time) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []domain.Ticket
	for _, t := range s.state.Tickets {
		if t.Status == domain.TicketClosed || !t.UpdatedAt.Before(cutoff) {
			continue
		}
		t.Status = domain.TicketClosed
		t.ClosedAt = at
		if s.state.ActiveTicket[t.Owner] == t.ID {
			delete(s.state.ActiveTicket, t.Owner)
		}
		expired = append(expired, copyTicket(t))
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	return expired
}

// TrackPrompt records the delivery handle of an interactive prompt sent to
// a commander for a mission or ticket, so the prompt's buttons can later be
// replaced or stripped.
func (s *Store) TrackPrompt(entityID string, commander domain.MemberID, ref domain.DeliveryRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.state.Routing[entityID]
	if !ok {
		refs = map[domain.MemberID]domain.DeliveryRef{}
		s.state.Routing[entityID] = refs
	}
	refs[commander] = ref
}

// PromptRefs returns the tracked prompt handles for an entity.
func (s *Store) PromptRefs(entityID string) map[domain.MemberID]domain.DeliveryRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.MemberID]domain.DeliveryRef, len(s.state.Routing[entityID]))
	for id, ref := range s.state.Routing[entityID] {
		out[id] = ref
	}
	return out
}

// DropPrompts discards the routing entries for an entity, typically after
// its lifecycle ended and the buttons were stripped.
func (s *Store) DropPrompts(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Routing, entityID)
}
