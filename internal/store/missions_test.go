package store

import (
	"testing"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

func pendingMission(id string, creator domain.MemberID) domain.Mission {
	return domain.Mission{
		ID:          id,
		Creator:     creator,
		Scope:       domain.ScopePrivates,
		Name:        "Recon",
		Status:      domain.MissionPending,
		CreatedAt:   t0,
		CompletedBy: map[domain.MemberID]struct{}{},
	}
}

func TestApproveMissionIdempotent(t *testing.T) {
	s := newTestStore(1)
	s.PutMission(pendingMission("mission_3_1", 3))

	m, err := s.ApproveMission("mission_3_1", 1, t0)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if m.Status != domain.MissionActive || m.ApprovedBy != 1 {
		t.Fatalf("approved mission = %+v", m)
	}

	if _, err := s.ApproveMission("mission_3_1", 1, t0); err != ErrAlreadyProcessed {
		t.Fatalf("second approve = %v, want ErrAlreadyProcessed", err)
	}
	if _, err := s.RejectMission("mission_3_1", 1, t0); err != ErrAlreadyProcessed {
		t.Fatalf("reject after approve = %v, want ErrAlreadyProcessed", err)
	}
}

func TestRejectMission(t *testing.T) {
	s := newTestStore(1)
	s.PutMission(pendingMission("mission_3_2", 3))

	m, err := s.RejectMission("mission_3_2", 1, t0)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if m.Status != domain.MissionRejected || m.RejectedBy != 1 {
		t.Fatalf("rejected mission = %+v", m)
	}
}

func TestMarkMissionCompletedQuorum(t *testing.T) {
	s := newTestStore()
	s.AddMember(10, domain.UnitPrivates, t0)
	s.AddMember(11, domain.UnitPrivates, t0)

	m := pendingMission("mission_1_5", 1)
	m.Status = domain.MissionActive
	s.PutMission(m)

	res, err := s.MarkMissionCompleted(m.ID, 10, t0)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if res.Done != 1 || res.Total != 2 || res.Quorum {
		t.Fatalf("first mark = done %d total %d quorum %v", res.Done, res.Total, res.Quorum)
	}

	if _, err := s.MarkMissionCompleted(m.ID, 10, t0); err != ErrDuplicateCompletion {
		t.Fatalf("duplicate mark = %v, want ErrDuplicateCompletion", err)
	}

	res, err = s.MarkMissionCompleted(m.ID, 11, t0)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if !res.Quorum || res.Done != 2 || res.Total != 2 {
		t.Fatalf("second mark = done %d total %d quorum %v", res.Done, res.Total, res.Quorum)
	}
}

func TestMarkMissionCompletedRecomputesLiveTotal(t *testing.T) {
	s := newTestStore()
	s.AddMember(10, domain.UnitPrivates, t0)
	s.AddMember(11, domain.UnitPrivates, t0)

	m := pendingMission("mission_1_6", 1)
	m.Status = domain.MissionActive
	s.PutMission(m)

	if _, err := s.MarkMissionCompleted(m.ID, 10, t0); err != nil {
		t.Fatalf("mark: %v", err)
	}

	// A recruit joining mid-mission raises the quorum bar.
	s.AddMember(12, domain.UnitPrivates, t0)
	res, err := s.MarkMissionCompleted(m.ID, 11, t0)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if res.Total != 3 || res.Quorum {
		t.Fatalf("after join = done %d total %d quorum %v, want total 3 no quorum",
			res.Done, res.Total, res.Quorum)
	}

	res, err = s.MarkMissionCompleted(m.ID, 12, t0)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !res.Quorum {
		t.Fatalf("quorum not reached at done %d total %d", res.Done, res.Total)
	}
}

func TestMarkMissionCompletedRequiresActive(t *testing.T) {
	s := newTestStore()
	s.PutMission(pendingMission("mission_1_7", 1))

	if _, err := s.MarkMissionCompleted("mission_1_7", 10, t0); err != ErrMissionNotActive {
		t.Fatalf("mark on pending = %v, want ErrMissionNotActive", err)
	}
	if _, err := s.MarkMissionCompleted("nope", 10, t0); err != ErrNotFound {
		t.Fatalf("mark on missing = %v, want ErrNotFound", err)
	}
}

func TestFinishMissionIdempotent(t *testing.T) {
	s := newTestStore()
	m := pendingMission("mission_1_8", 1)
	m.Status = domain.MissionActive
	s.PutMission(m)

	at := t0.Add(time.Hour)
	got, err := s.FinishMission(m.ID, at)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got.Status != domain.MissionCompleted || !got.CompletedAt.Equal(at) {
		t.Fatalf("finished mission = %+v", got)
	}

	if _, err := s.FinishMission(m.ID, at); err != ErrAlreadyCompleted {
		t.Fatalf("second finish = %v, want ErrAlreadyCompleted", err)
	}
}

func TestCompletedMissionCount(t *testing.T) {
	s := newTestStore()
	for i, id := range []string{"m1", "m2", "m3"} {
		m := pendingMission(id, 1)
		m.Status = domain.MissionCompleted
		if i < 2 {
			m.CompletedBy = map[domain.MemberID]struct{}{77: {}}
		}
		s.PutMission(m)
	}
	// Credit only counts on finished missions.
	active := pendingMission("m4", 1)
	active.Status = domain.MissionActive
	active.CompletedBy = map[domain.MemberID]struct{}{77: {}}
	s.PutMission(active)

	if got := s.CompletedMissionCount(77); got != 2 {
		t.Fatalf("CompletedMissionCount = %d, want 2", got)
	}
}
