package store

import (
	"testing"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

func TestCreateTicketAtMostOneActive(t *testing.T) {
	s := newTestStore()

	first, created := s.CreateTicket(10, "help", t0)
	if !created {
		t.Fatalf("first create not created")
	}
	if first.Status != domain.TicketOpen || len(first.Log) != 1 {
		t.Fatalf("new ticket = %+v", first)
	}

	dup, created := s.CreateTicket(10, "help again", t0.Add(time.Minute))
	if created {
		t.Fatalf("second create opened a new ticket %s", dup.ID)
	}
	if dup.ID != first.ID {
		t.Fatalf("duplicate create returned %s, want %s", dup.ID, first.ID)
	}

	// After closure a new ticket may be opened.
	if _, err := s.CloseTicket(first.ID, t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("close: %v", err)
	}
	next, created := s.CreateTicket(10, "new issue", t0.Add(time.Hour))
	if !created || next.ID == first.ID {
		t.Fatalf("create after close = %s created=%v", next.ID, created)
	}
}

func TestTakeTicketOpenOnly(t *testing.T) {
	s := newTestStore(1)
	tk, _ := s.CreateTicket(10, "help", t0)

	got, err := s.TakeTicket(tk.ID, 1, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Status != domain.TicketInProgress || got.AssignedTo != 1 {
		t.Fatalf("taken ticket = %+v", got)
	}

	if _, err := s.TakeTicket(tk.ID, 2, t0.Add(2*time.Minute)); err != ErrTicketTaken {
		t.Fatalf("second take = %v, want ErrTicketTaken", err)
	}
	if _, err := s.TakeTicket("ticket_0_0", 1, t0); err != ErrNotFound {
		t.Fatalf("take missing = %v, want ErrNotFound", err)
	}
}

func TestAppendGuardsClosedTickets(t *testing.T) {
	s := newTestStore(1)
	tk, _ := s.CreateTicket(10, "help", t0)
	if _, err := s.CloseTicket(tk.ID, t0); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := s.AppendFromOwner(tk.ID, "more", t0); err != ErrTicketClosed {
		t.Fatalf("owner append on closed = %v, want ErrTicketClosed", err)
	}
	if _, err := s.AppendFromCommander(tk.ID, 1, "reply", t0); err != ErrTicketClosed {
		t.Fatalf("commander append on closed = %v, want ErrTicketClosed", err)
	}
	if _, err := s.CloseTicket(tk.ID, t0); err != ErrTicketClosed {
		t.Fatalf("double close = %v, want ErrTicketClosed", err)
	}
}

func TestTicketAssignedTo(t *testing.T) {
	s := newTestStore(1)
	tk, _ := s.CreateTicket(10, "help", t0)
	if _, ok := s.TicketAssignedTo(1); ok {
		t.Fatalf("assignment reported before take")
	}
	if _, err := s.TakeTicket(tk.ID, 1, t0); err != nil {
		t.Fatalf("take: %v", err)
	}
	got, ok := s.TicketAssignedTo(1)
	if !ok || got.ID != tk.ID {
		t.Fatalf("TicketAssignedTo = %v,%v", got.ID, ok)
	}
}

func TestExpireTicketsSecondSweepNoop(t *testing.T) {
	s := newTestStore()
	stale, _ := s.CreateTicket(10, "old", t0)
	s.CreateTicket(11, "fresh", t0.Add(48*time.Hour))

	cutoff := t0.Add(24 * time.Hour)
	at := t0.Add(73 * time.Hour)

	expired := s.ExpireTickets(cutoff, at)
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("expired = %v, want [%s]", expired, stale.ID)
	}
	if expired[0].Status != domain.TicketClosed {
		t.Fatalf("expired ticket status = %s", expired[0].Status)
	}
	if _, ok := s.ActiveTicketOf(10); ok {
		t.Fatalf("active index survived expiry")
	}

	if again := s.ExpireTickets(cutoff, at); len(again) != 0 {
		t.Fatalf("second sweep closed %d tickets, want 0", len(again))
	}
}

func TestPromptTracking(t *testing.T) {
	s := newTestStore()
	ref := domain.DeliveryRef{ChatID: 1, MessageID: "m1"}
	s.TrackPrompt("ticket_10_1", 1, ref)
	s.TrackPrompt("ticket_10_1", 2, domain.DeliveryRef{ChatID: 2, MessageID: "m2"})

	refs := s.PromptRefs("ticket_10_1")
	if len(refs) != 2 || refs[1] != ref {
		t.Fatalf("PromptRefs = %v", refs)
	}

	s.DropPrompts("ticket_10_1")
	if got := s.PromptRefs("ticket_10_1"); len(got) != 0 {
		t.Fatalf("refs after drop = %v", got)
	}
}
