package store

import (
	"sort"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

// PutMission archives a new mission and appends it to the recent window,
// evicting the oldest id beyond the cap. The archive itself is unbounded.
func (s *Store) PutMission(m domain.Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CompletedBy == nil {
		m.CompletedBy = map[domain.MemberID]struct{}{}
	}
	cp := copyMission(&m)
	s.state.Missions[m.ID] = &cp
	s.state.RecentMissions = append(s.state.RecentMissions, m.ID)
	if over := len(s.state.RecentMissions) - s.maxRecent; over > 0 {
		s.state.RecentMissions = append([]string(nil), s.state.RecentMissions[over:]...)
	}
}

// Mission returns a copy of the archived mission.
func (s *Store) Mission(id string) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Missions[id]
	if !ok {
		return domain.Mission{}, ErrNotFound
	}
	return copyMission(m), nil
}

// ApproveMission transitions Pending -> Active, recording the approver.
// Approval of a non-Pending mission is rejected so double-clicks on a stale
// prompt never double-distribute.
func (s *Store) ApproveMission(id string, by domain.MemberID, at time.Time) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Missions[id]
	if !ok {
		return domain.Mission{}, ErrNotFound
	}
	if m.Status != domain.MissionPending {
		return domain.Mission{}, ErrAlreadyProcessed
	}
	m.Status = domain.MissionActive
	m.ApprovedBy = by
	m.ApprovedAt = at
	return copyMission(m), nil
}

// RejectMission transitions Pending -> Rejected, recording the rejecter.
func (s *Store) RejectMission(id string, by domain.MemberID, at time.Time) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Missions[id]
	if !ok {
		return domain.Mission{}, ErrNotFound
	}
	if m.Status != domain.MissionPending {
		return domain.Mission{}, ErrAlreadyProcessed
	}
	m.Status = domain.MissionRejected
	m.RejectedBy = by
	m.RejectedAt = at
	return copyMission(m), nil
}

// CompletionResult reports the outcome of a completion mark: the mission
// after the mark, how many targeted members have reported, the live size of
// the target union, and whether the mark reached quorum.
type CompletionResult struct {
	Mission domain.Mission
	Done    int
	Total   int
	Quorum  bool
}

// MarkMissionCompleted adds the member to the mission's completed set.
// The quorum total is recomputed against current unit membership inside the
// same critical section, so the subset invariant and the count can never
// disagree with each other.
func (s *Store) MarkMissionCompleted(id string, member domain.MemberID, at time.Time) (CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Missions[id]
	if !ok {
		return CompletionResult{}, ErrNotFound
	}
	if m.Status != domain.MissionActive {
		return CompletionResult{}, ErrMissionNotActive
	}
	if _, done := m.CompletedBy[member]; done {
		return CompletionResult{}, ErrDuplicateCompletion
	}
	m.CompletedBy[member] = struct{}{}

	total := len(s.targetUnionLocked(m.Scope.TargetUnits()))
	res := CompletionResult{
		Mission: copyMission(m),
		Done:    len(m.CompletedBy),
		Total:   total,
		Quorum:  len(m.CompletedBy) == total,
	}
	return res, nil
}

// FinishMission sets the authoritative Completed status. Reaching quorum
// only announces achievement; this explicit commander action closes the
// record.
func (s *Store) FinishMission(id string, at time.Time) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Missions[id]
	if !ok {
		return domain.Mission{}, ErrNotFound
	}
	if m.Status == domain.MissionCompleted {
		return domain.Mission{}, ErrAlreadyCompleted
	}
	m.Status = domain.MissionCompleted
	m.CompletedAt = at
	return copyMission(m), nil
}

// RecentMissions returns copies of the missions in the recent window,
// oldest first. Ids whose archive entry is missing (corrupt snapshot) are
// skipped.
func (s *Store) RecentMissions() []domain.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Mission, 0, len(s.state.RecentMissions))
	for _, id := range s.state.RecentMissions {
		if m, ok := s.state.Missions[id]; ok {
			out = append(out, copyMission(m))
		}
	}
	return out
}

// MissionCounts tallies the archive by status.
func (s *Store) MissionCounts() map[domain.MissionStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[domain.MissionStatus]int{}
	for _, m := range s.state.Missions {
		out[m.Status]++
	}
	return out
}

// MemberMissions returns the missions the member has reported complete,
// split into still-active and finished, for the status view.
func (s *Store) MemberMissions(id domain.MemberID) (active, finished []domain.Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.state.Missions {
		if _, in := m.CompletedBy[id]; !in {
			continue
		}
		switch m.Status {
		case domain.MissionActive:
			active = append(active, copyMission(m))
		case domain.MissionCompleted:
			finished = append(finished, copyMission(m))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	sort.Slice(finished, func(i, j int) bool { return finished[i].CreatedAt.Before(finished[j].CreatedAt) })
	return active, finished
}

// CompletedMissionCount counts finished missions the member took part in,
// across the whole archive. Feeds the medal display in member listings.
func (s *Store) CompletedMissionCount(id domain.MemberID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.state.Missions {
		if m.Status != domain.MissionCompleted {
			continue
		}
		if _, ok := m.CompletedBy[id]; ok {
			n++
		}
	}
	return n
}
