// Package services – MemberService
//
// This file implements member-facing operations outside the two main
// workflows: onboarding, readiness confirmation, callsigns, the status and
// summary views, and unit management.
package services

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/store"
)

// MemberService owns per-member bookkeeping and unit management.
type MemberService struct {
	Store *store.Store

	// MaxCallsignLen caps callsigns by rune length.
	MaxCallsignLen int

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewMemberService constructs a MemberService with the given callsign
// limit.
func NewMemberService(st *store.Store, maxCallsignLen int) *MemberService {
	return &MemberService{Store: st, MaxCallsignLen: maxCallsignLen, Now: time.Now}
}

// Seen stamps the activity ledger and refreshes the display-name cache.
// Called for every inbound event.
func (s *MemberService) Seen(id domain.MemberID, username string) {
	s.Store.Touch(id, s.Now())
	if username != "" {
		s.Store.SetDisplayName(id, username)
	}
}

// OnboardResult describes what the start command did for the member.
type OnboardResult struct {
	Commander bool
	// Enrolled is true when the member was unknown and has been placed
	// into the rank-and-file tier.
	Enrolled bool
	Ready    bool
}

// Onboard handles the start command: commanders get the command surface,
// unknown members are enrolled as rank-and-file subscribers, and returning
// members are reminded of their readiness state.
func (s *MemberService) Onboard(id domain.MemberID, username string) OnboardResult {
	s.Seen(id, username)
	if s.Store.IsCommander(id) {
		return OnboardResult{Commander: true, Ready: s.Store.IsReady(id)}
	}
	if s.Store.Subscribe(id) {
		s.Store.AddMember(id, domain.UnitPrivates, s.Now())
		return OnboardResult{Enrolled: true}
	}
	return OnboardResult{Ready: s.Store.IsReady(id)}
}

// ConfirmReady marks the member ready and reports whether they already
// were.
func (s *MemberService) ConfirmReady(id domain.MemberID) (already bool) {
	return s.Store.MarkReady(id)
}

// SetCallsign validates, normalizes, and stores the member's callsign.
func (s *MemberService) SetCallsign(id domain.MemberID, callsign string) (string, error) {
	callsign = norm.NFC.String(strings.Join(strings.Fields(callsign), " "))
	if callsign == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(callsign) > s.MaxCallsignLen {
		return "", ErrCallsignTooLong
	}
	s.Store.SetCallsign(id, callsign)
	return callsign, nil
}

// StatusReport is the data behind the member status view.
type StatusReport struct {
	DisplayName  string
	Callsign     string
	Ready        bool
	Commander    bool
	ActiveTicket *domain.Ticket
	// ActiveMissions are missions the member reported complete that are
	// still running; FinishedMissions are the closed ones.
	ActiveMissions   []domain.Mission
	FinishedMissions []domain.Mission
}

// Status assembles the member's status view.
func (s *MemberService) Status(id domain.MemberID) StatusReport {
	rep := StatusReport{
		DisplayName: s.Store.DisplayName(id),
		Ready:       s.Store.IsReady(id),
		Commander:   s.Store.IsCommander(id),
	}
	if c, ok := s.Store.Callsign(id); ok {
		rep.Callsign = c
	}
	if t, ok := s.Store.ActiveTicketOf(id); ok {
		rep.ActiveTicket = &t
	}
	rep.ActiveMissions, rep.FinishedMissions = s.Store.MemberMissions(id)
	return rep
}

// Summary is the data behind the operations overview.
type Summary struct {
	MissionCounts  map[domain.MissionStatus]int
	OpenTickets    int
	InProgress     int
	UnitSizes      map[domain.Unit]int
	RecentMissions []domain.Mission
}

// Summarize assembles the operations overview. Commander-only.
func (s *MemberService) Summarize(requester domain.MemberID) (Summary, error) {
	if !s.Store.IsCommander(requester) {
		return Summary{}, ErrNoPermission
	}
	open, inProgress := s.Store.TicketCounts()
	return Summary{
		MissionCounts:  s.Store.MissionCounts(),
		OpenTickets:    open,
		InProgress:     inProgress,
		UnitSizes:      s.Store.UnitSizes(),
		RecentMissions: s.Store.RecentMissions(),
	}, nil
}

// RosterEntry is one line of a unit member listing.
type RosterEntry struct {
	ID          domain.MemberID
	DisplayName string
	// Completed counts finished missions the member took part in; the
	// view renders it with a medal.
	Completed int
}

// Roster returns the members of a tier with display data, sorted by id.
// Commander-only.
func (s *MemberService) Roster(requester domain.MemberID, unit domain.Unit) ([]RosterEntry, error) {
	if !s.Store.IsCommander(requester) {
		return nil, ErrNoPermission
	}
	if !unit.Valid() {
		return nil, ErrUnknownUnit
	}
	ids := s.Store.UnitMembers(unit)
	out := make([]RosterEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, RosterEntry{
			ID:          id,
			DisplayName: s.Store.DisplayName(id),
			Completed:   s.Store.CompletedMissionCount(id),
		})
	}
	return out, nil
}

// AddToUnit parses the raw member-id input and places the member into the
// tier. Commander-only; a malformed id reports ErrBadMemberID so the
// pending input can be retried.
func (s *MemberService) AddToUnit(requester domain.MemberID, unit domain.Unit, rawID string) (domain.MemberID, error) {
	if !s.Store.IsCommander(requester) {
		return 0, ErrNoPermission
	}
	if !unit.Valid() {
		return 0, ErrUnknownUnit
	}
	n, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return 0, ErrBadMemberID
	}
	id := domain.MemberID(n)
	s.Store.AddMember(id, unit, s.Now())
	return id, nil
}

// RemoveFromUnit parses the raw member-id input and removes the member
// from the tier. Commander-only.
func (s *MemberService) RemoveFromUnit(requester domain.MemberID, unit domain.Unit, rawID string) (domain.MemberID, error) {
	if !s.Store.IsCommander(requester) {
		return 0, ErrNoPermission
	}
	if !unit.Valid() {
		return 0, ErrUnknownUnit
	}
	n, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return 0, ErrBadMemberID
	}
	id := domain.MemberID(n)
	if !s.Store.RemoveFromUnit(id, unit) {
		return 0, ErrNotInUnit
	}
	return id, nil
}

// Medal maps a completed-mission count to its award.
func Medal(completed int) string {
	switch {
	case completed >= 100:
		return "🏅"
	case completed >= 50:
		return "🥇"
	case completed >= 25:
		return "🥈"
	case completed >= 10:
		return "🥉"
	}
	return ""
}
