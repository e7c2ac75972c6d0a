package store

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

// populatedStore builds a store exercising every snapshot section.
func populatedStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(1)
	s.AddMember(2, domain.UnitDecurions, t0)
	s.AddMember(3, domain.UnitPrivates, t0)
	s.SetDisplayName(2, "@optio")
	s.SetCallsign(2, "Optio")
	s.MarkReady(3)

	s.PutMission(domain.Mission{
		ID:        "mission_1_100",
		Creator:   1,
		Scope:     domain.ScopeAll,
		Name:      "Recon",
		Content:   "Scout the perimeter",
		Status:    domain.MissionActive,
		CreatedAt: t0,
		CompletedBy: map[domain.MemberID]struct{}{
			3: {},
		},
	})

	tk, _ := s.CreateTicket(3, "radio down", t0)
	if _, err := s.TakeTicket(tk.ID, 1, t0.Add(time.Minute)); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := s.AppendFromCommander(tk.ID, 1, "on it", t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.TrackPrompt(tk.ID, 1, domain.DeliveryRef{ChatID: 1, MessageID: "m7"})

	s.SetPending(2, domain.PendingAction{
		Kind:  domain.PendingMissionName,
		Scope: domain.ScopePrivates,
	})
	s.SetPending(3, domain.PendingAction{Kind: domain.PendingCallsign})
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := populatedStore(t)
	snap := s.Snapshot()

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored := New([]domain.MemberID{1}, 15)
	restored.Restore(decoded)

	if !reflect.DeepEqual(restored.Snapshot(), snap) {
		t.Fatalf("snapshot changed across restore:\n got %+v\nwant %+v", restored.Snapshot(), snap)
	}
}

func TestSnapshotKeyLayout(t *testing.T) {
	s := populatedStore(t)
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"units", "missions", "command", "subscribers", "combat_ready", "usernames"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("snapshot missing top-level key %q", key)
		}
	}

	var cmd map[string]json.RawMessage
	if err := json.Unmarshal(raw["command"], &cmd); err != nil {
		t.Fatalf("unmarshal command: %v", err)
	}
	for _, key := range []string{"call_signs", "tickets", "activity", "temp_actions", "temp_missions", "user_active_tickets", "ticket_responses"} {
		if _, ok := cmd[key]; !ok {
			t.Errorf("command section missing key %q", key)
		}
	}
}

func TestRestoreCoercesApprovedToActive(t *testing.T) {
	s := newTestStore(1)
	s.PutMission(domain.Mission{
		ID:        "mission_1_100",
		Creator:   1,
		Scope:     domain.ScopeAll,
		Name:      "Recon",
		Status:    domain.MissionActive,
		CreatedAt: t0,
	})
	snap := s.Snapshot()
	rec := snap.Missions.Archive["mission_1_100"]
	rec.Status = string(domain.MissionApproved)
	snap.Missions.Archive["mission_1_100"] = rec

	s.Restore(snap)
	m, err := s.Mission("mission_1_100")
	if err != nil {
		t.Fatalf("mission: %v", err)
	}
	if m.Status != domain.MissionActive {
		t.Fatalf("restored status = %s, want %s", m.Status, domain.MissionActive)
	}
}

func TestRestoreReappliesAdmins(t *testing.T) {
	empty := New(nil, 15)
	snap := empty.Snapshot()

	s := New([]domain.MemberID{7}, 15)
	s.Restore(snap)
	if !s.IsCommander(7) {
		t.Fatalf("admin lost commander role after restore")
	}
	if !s.IsSubscriber(7) {
		t.Fatalf("admin lost subscription after restore")
	}
}

func TestRestoreTrimsRecentWindow(t *testing.T) {
	s := New(nil, 3)
	snap := s.Snapshot()
	snap.Missions.Active = []string{"a", "b", "c", "d", "e"}

	s.Restore(snap)
	got := s.RecentMissions()
	if len(got) != 0 {
		// RecentMissions resolves IDs against the archive; these five
		// are dangling, so check the raw window instead.
		t.Fatalf("dangling ids resolved to %d missions", len(got))
	}
	s.mu.Lock()
	window := append([]string(nil), s.state.RecentMissions...)
	s.mu.Unlock()
	if want := []string{"c", "d", "e"}; !reflect.DeepEqual(window, want) {
		t.Fatalf("recent window = %v, want %v", window, want)
	}
}
