// Package services – TicketService
//
// This file implements the support-ticket lifecycle: creation with the
// at-most-one-active invariant, assignment, the structured response flow,
// the silent two-way dialog relay, closure, and the inactivity sweep.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/store"
	"github.com/cyberguard/squadbot/internal/transport"
)

// TicketService owns the ticket state machine.
type TicketService struct {
	Store    *store.Store
	Dispatch *Dispatcher

	// Timeout is the inactivity threshold after which the sweep
	// force-closes a ticket.
	Timeout time.Duration

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewTicketService constructs a TicketService with the given inactivity
// threshold.
func NewTicketService(st *store.Store, d *Dispatcher, timeout time.Duration) *TicketService {
	return &TicketService{Store: st, Dispatch: d, Timeout: timeout, Now: time.Now}
}

// responseMarkup is the keyboard offered to the commander handling a
// ticket.
func responseMarkup(ticketID string) *transport.Markup {
	return transport.Row(
		transport.Button{Text: "✉️ Reply", Data: CallbackData(CBRespondTicket, ticketID)},
		transport.Button{Text: "🔒 Close ticket", Data: CallbackData(CBCloseTicket, ticketID)},
	)
}

// Create opens a ticket for the member. If they already have a non-closed
// ticket the existing one is returned alongside ErrActiveTicketExists and
// nothing changes. On success a "take" prompt fans out to the command set
// and each delivered prompt is tracked for later button updates.
func (s *TicketService) Create(ctx context.Context, owner domain.MemberID, text string) (domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("member.id", int64(owner))),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Ticket{}, ErrEmptyText
	}

	t, created := s.Store.CreateTicket(owner, text, s.Now())
	if !created {
		return t, ErrActiveTicketExists
	}
	span.SetAttributes(attribute.String("ticket.id", t.ID))

	prompt := fmt.Sprintf("🚨 New report from %s (ID: %d):\n%s\nID: %s",
		s.Store.DisplayName(owner), owner, text, t.ID)
	markup := transport.Row(transport.Button{
		Text: "Take action",
		Data: CallbackData(CBTakeTicket, t.ID),
	})
	res := s.Dispatch.Fanout(ctx, s.Store.Commanders(), prompt, markup)
	for cmdr, ref := range res.Delivered {
		s.Store.TrackPrompt(t.ID, cmdr, ref)
	}
	return t, nil
}

// Take assigns an open ticket to a commander: the owner is told who is
// handling their case (by callsign), and every other commander's stale
// "take" prompt is swapped for the reply/close keyboard.
func (s *TicketService) Take(ctx context.Context, ticketID string, commander domain.MemberID) (domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Take",
		trace.WithAttributes(
			attribute.String("ticket.id", ticketID),
			attribute.Int64("member.id", int64(commander)),
		),
	)
	defer span.End()

	if !s.Store.IsCommander(commander) {
		return domain.Ticket{}, ErrNoPermission
	}
	t, err := s.Store.TakeTicket(ticketID, commander, s.Now())
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}

	s.Dispatch.Send(ctx, t.Owner, //nolint:errcheck
		fmt.Sprintf("ℹ️ Your ticket has been taken!\nHandled by: %s\nTicket ID: %s", s.CallsignOf(commander), t.ID), nil)
	s.Dispatch.SwapPrompts(ctx, t.ID, responseMarkup(t.ID))
	return t, nil
}

// Respond appends a commander's structured response to the ticket log and
// relays it to the owner. Used by the router when the commander completes
// the "reply" flow.
func (s *TicketService) Respond(ctx context.Context, ticketID string, commander domain.MemberID, text string) (domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(
			attribute.String("ticket.id", ticketID),
			attribute.Int64("member.id", int64(commander)),
		),
	)
	defer span.End()

	if !s.Store.IsCommander(commander) {
		return domain.Ticket{}, ErrNoPermission
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Ticket{}, ErrEmptyText
	}
	t, err := s.Store.AppendFromCommander(ticketID, commander, text, s.Now())
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}

	s.Dispatch.Send(ctx, t.Owner, //nolint:errcheck
		fmt.Sprintf("✉️ Response to your ticket %s:\n%s", t.ID, text), nil)
	return t, nil
}

// RelayFromOwner forwards a plain-text follow-up from the ticket owner to
// the assigned commander. The relay is silent towards the owner so the
// exchange feels like a natural two-party chat. An unassigned ticket
// reports ErrTicketUnassigned so the caller can tell the owner to wait.
func (s *TicketService) RelayFromOwner(ctx context.Context, owner domain.MemberID, text string) (domain.Ticket, error) {
	t, ok := s.Store.ActiveTicketOf(owner)
	if !ok {
		return domain.Ticket{}, ErrNoActiveTicket
	}
	if t.AssignedTo == 0 {
		return t, ErrTicketUnassigned
	}
	t, err := s.Store.AppendFromOwner(t.ID, text, s.Now())
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}

	s.Dispatch.Send(ctx, t.AssignedTo, //nolint:errcheck
		fmt.Sprintf("💬 Message for ticket %s:\n%s", t.ID, text), nil)
	return t, nil
}

// RelayFromCommander forwards a plain-text message from the assigned
// commander to the ticket owner, silently towards the commander.
func (s *TicketService) RelayFromCommander(ctx context.Context, commander domain.MemberID, text string) (domain.Ticket, error) {
	t, ok := s.Store.TicketAssignedTo(commander)
	if !ok {
		return domain.Ticket{}, ErrNoActiveTicket
	}
	t, err := s.Store.AppendFromCommander(t.ID, commander, text, s.Now())
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}

	s.Dispatch.Send(ctx, t.Owner, //nolint:errcheck
		fmt.Sprintf("💬 Response for ticket %s:\n%s", t.ID, text), nil)
	return t, nil
}

// Close closes the ticket on behalf of its owner, its assignee, or any
// commander. Both parties are notified and every tracked prompt loses its
// buttons. Closing twice reports ErrTicketClosed without side effects.
func (s *TicketService) Close(ctx context.Context, ticketID string, requester domain.MemberID) (domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Close",
		trace.WithAttributes(
			attribute.String("ticket.id", ticketID),
			attribute.Int64("member.id", int64(requester)),
		),
	)
	defer span.End()

	t, err := s.Store.Ticket(ticketID)
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}
	if requester != t.Owner && requester != t.AssignedTo && !s.Store.IsCommander(requester) {
		return domain.Ticket{}, ErrNoPermission
	}

	t, err = s.Store.CloseTicket(ticketID, s.Now())
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}

	s.Dispatch.Send(ctx, t.Owner, //nolint:errcheck
		fmt.Sprintf("✅ Your ticket %s has been closed.\nIf you need further assistance, you can open a new one.", t.ID), nil)
	if t.AssignedTo != 0 && t.AssignedTo != t.Owner {
		s.Dispatch.Send(ctx, t.AssignedTo, //nolint:errcheck
			fmt.Sprintf("✅ Ticket %s has been closed.\nDialog ended.", t.ID), nil)
	}
	s.Dispatch.RetirePrompts(ctx, t.ID)
	return t, nil
}

// CloseCurrent resolves which ticket a bare close command refers to: the
// requester's own active ticket, or the in-progress ticket assigned to
// them.
func (s *TicketService) CloseCurrent(ctx context.Context, requester domain.MemberID) (domain.Ticket, error) {
	if t, ok := s.Store.ActiveTicketOf(requester); ok {
		return s.Close(ctx, t.ID, requester)
	}
	if t, ok := s.Store.TicketAssignedTo(requester); ok {
		return s.Close(ctx, t.ID, requester)
	}
	return domain.Ticket{}, ErrNoActiveTicket
}

// Sweep force-closes every non-closed ticket whose last update is older
// than the inactivity threshold and notifies the owners. The caller
// persists once after the batch. Returns the number of closed tickets.
func (s *TicketService) Sweep(ctx context.Context) int {
	now := s.Now()
	expired := s.Store.ExpireTickets(now.Add(-s.Timeout), now)
	for _, t := range expired {
		ticketsExpiredTotal.Inc()
		s.Dispatch.Send(ctx, t.Owner, //nolint:errcheck
			fmt.Sprintf("ℹ️ Your ticket %s has been closed due to inactivity.\nIf your issue is not resolved, you can open a new one.", t.ID), nil)
		s.Dispatch.RetirePrompts(ctx, t.ID)
	}
	return len(expired)
}

// Ticket returns the ticket by id.
func (s *TicketService) Ticket(ticketID string) (domain.Ticket, error) {
	t, err := s.Store.Ticket(ticketID)
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}
	return t, nil
}

// CallsignOf resolves the commander's callsign, falling back to a generic
// handle so owners always see something addressable.
func (s *TicketService) CallsignOf(commander domain.MemberID) string {
	if c, ok := s.Store.Callsign(commander); ok {
		return c
	}
	return fmt.Sprintf("Commander-%d", commander)
}

func mapTicketErr(err error) error {
	switch err {
	case store.ErrNotFound:
		return ErrTicketNotFound
	case store.ErrTicketTaken:
		return ErrTicketTaken
	case store.ErrTicketClosed:
		return ErrTicketClosed
	}
	return err
}
