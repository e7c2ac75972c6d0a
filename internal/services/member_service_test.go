package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/store"
)

func newMemberService(st *store.Store) *MemberService {
	svc := NewMemberService(st, 20)
	svc.Now = func() time.Time { return testClock }
	return svc
}

func TestOnboardOutcomes(t *testing.T) {
	st, _, _ := squadFixture(t)
	svc := newMemberService(st)

	if res := svc.Onboard(1, "@primus"); !res.Commander {
		t.Fatalf("admin onboard = %+v, want commander", res)
	}

	// Unknown member: enrolled into the rank and file and subscribed.
	res := svc.Onboard(42, "@tiro")
	if !res.Enrolled || res.Commander {
		t.Fatalf("new member onboard = %+v, want enrolled", res)
	}
	if !st.InUnit(42, domain.UnitPrivates) || !st.IsSubscriber(42) {
		t.Fatalf("new member not enrolled as private subscriber")
	}
	if st.DisplayName(42) != "@tiro" {
		t.Fatalf("display name = %q", st.DisplayName(42))
	}

	// Returning member: no re-enrollment, readiness state reported.
	st.MarkReady(42)
	res = svc.Onboard(42, "@tiro")
	if res.Enrolled || !res.Ready {
		t.Fatalf("returning onboard = %+v, want ready", res)
	}
}

func TestConfirmReadyReportsRepeat(t *testing.T) {
	st, _, _ := squadFixture(t)
	svc := newMemberService(st)

	if already := svc.ConfirmReady(3); already {
		t.Fatalf("first confirmation reported as repeat")
	}
	if already := svc.ConfirmReady(3); !already {
		t.Fatalf("second confirmation not reported as repeat")
	}
}

func TestSetCallsignNormalizes(t *testing.T) {
	st, _, _ := squadFixture(t)
	svc := newMemberService(st)

	got, err := svc.SetCallsign(3, "  Night   Owl  ")
	if err != nil {
		t.Fatalf("SetCallsign: %v", err)
	}
	if got != "Night Owl" {
		t.Fatalf("callsign = %q, want %q", got, "Night Owl")
	}
	if c, ok := st.Callsign(3); !ok || c != "Night Owl" {
		t.Fatalf("stored callsign = %q, %v", c, ok)
	}

	if _, err := svc.SetCallsign(3, "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("blank callsign err = %v, want ErrEmptyText", err)
	}
	if _, err := svc.SetCallsign(3, "an unreasonably long callsign"); !errors.Is(err, ErrCallsignTooLong) {
		t.Fatalf("long callsign err = %v, want ErrCallsignTooLong", err)
	}
}

func TestStatusReport(t *testing.T) {
	st, _, d := squadFixture(t)
	svc := newMemberService(st)
	missions := newMissionService(st, d)

	st.SetDisplayName(3, "@tiro")
	st.MarkReady(3)
	st.SetCallsign(3, "Owl")
	st.CreateTicket(3, "radio down", testClock)

	active, _, err := missions.Create(context.Background(), 1, domain.ScopePrivates, "Recon", "Scout")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := missions.ReportCompleted(context.Background(), active.ID, 3); err != nil {
		t.Fatalf("ReportCompleted: %v", err)
	}

	rep := svc.Status(3)
	if rep.DisplayName != "@tiro" || rep.Callsign != "Owl" || !rep.Ready || rep.Commander {
		t.Fatalf("report = %+v", rep)
	}
	if rep.ActiveTicket == nil || rep.ActiveTicket.Owner != 3 {
		t.Fatalf("active ticket = %+v", rep.ActiveTicket)
	}
	if len(rep.ActiveMissions) != 1 || rep.ActiveMissions[0].ID != active.ID {
		t.Fatalf("active missions = %v", rep.ActiveMissions)
	}
	if len(rep.FinishedMissions) != 0 {
		t.Fatalf("finished missions = %v", rep.FinishedMissions)
	}
}

func TestSummarizeCommanderOnly(t *testing.T) {
	st, _, d := squadFixture(t)
	svc := newMemberService(st)
	missions := newMissionService(st, d)

	if _, err := svc.Summarize(3); !errors.Is(err, ErrNoPermission) {
		t.Fatalf("private summarize err = %v, want ErrNoPermission", err)
	}

	if _, _, err := missions.Create(context.Background(), 1, domain.ScopePrivates, "Recon", "Scout"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	st.CreateTicket(3, "radio down", testClock)

	sum, err := svc.Summarize(1)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.MissionCounts[domain.MissionActive] != 1 {
		t.Fatalf("mission counts = %v", sum.MissionCounts)
	}
	if sum.OpenTickets != 1 || sum.InProgress != 0 {
		t.Fatalf("ticket counts = %d open, %d in progress", sum.OpenTickets, sum.InProgress)
	}
	if sum.UnitSizes[domain.UnitPrivates] != 3 || sum.UnitSizes[domain.UnitCenturions] != 1 {
		t.Fatalf("unit sizes = %v", sum.UnitSizes)
	}
	if len(sum.RecentMissions) != 1 {
		t.Fatalf("recent missions = %v", sum.RecentMissions)
	}
}

func TestRosterAndUnitManagement(t *testing.T) {
	st, _, _ := squadFixture(t)
	svc := newMemberService(st)

	if _, err := svc.Roster(3, domain.UnitPrivates); !errors.Is(err, ErrNoPermission) {
		t.Fatalf("private roster err = %v, want ErrNoPermission", err)
	}
	if _, err := svc.Roster(1, domain.Unit("legates")); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("bad unit err = %v, want ErrUnknownUnit", err)
	}

	entries, err := svc.Roster(1, domain.UnitPrivates)
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != 3 {
		t.Fatalf("roster = %v", entries)
	}

	if _, err := svc.AddToUnit(1, domain.UnitDecurions, "abc"); !errors.Is(err, ErrBadMemberID) {
		t.Fatalf("bad id err = %v, want ErrBadMemberID", err)
	}
	id, err := svc.AddToUnit(1, domain.UnitDecurions, " 3 ")
	if err != nil || id != 3 {
		t.Fatalf("AddToUnit = %d, %v", id, err)
	}
	// Tiers are mutually exclusive: promotion leaves the old one.
	if st.InUnit(3, domain.UnitPrivates) {
		t.Fatalf("promoted member still listed as private")
	}
	if !st.InUnit(3, domain.UnitDecurions) {
		t.Fatalf("promoted member not listed as decurion")
	}

	if _, err := svc.RemoveFromUnit(1, domain.UnitPrivates, "3"); !errors.Is(err, ErrNotInUnit) {
		t.Fatalf("remove from wrong tier err = %v, want ErrNotInUnit", err)
	}
	if _, err := svc.RemoveFromUnit(1, domain.UnitDecurions, "3"); err != nil {
		t.Fatalf("RemoveFromUnit: %v", err)
	}
	if st.InUnit(3, domain.UnitDecurions) {
		t.Fatalf("removed member still listed")
	}
}

func TestMedalThresholds(t *testing.T) {
	cases := []struct {
		completed int
		want      string
	}{
		{0, ""},
		{9, ""},
		{10, "🥉"},
		{25, "🥈"},
		{50, "🥇"},
		{99, "🥇"},
		{100, "🏅"},
	}
	for _, c := range cases {
		if got := Medal(c.completed); got != c.want {
			t.Errorf("Medal(%d) = %q, want %q", c.completed, got, c.want)
		}
	}
}
