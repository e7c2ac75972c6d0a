package store

import (
	"sort"
	"strconv"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

// Snapshot is the transport-neutral serialized form of the store. Sets
// become sorted lists, timestamps become RFC 3339 strings, and numeric map
// keys become strings. The key layout matches the historical data files so
// existing snapshots keep loading.
type Snapshot struct {
	Units       map[string][]int64   `json:"units"`
	Missions    missionsSection      `json:"missions"`
	Command     commandSection       `json:"command"`
	Subscribers []int64              `json:"subscribers"`
	CombatReady []int64              `json:"combat_ready"`
	Usernames   map[string]*string   `json:"usernames"`
}

type missionsSection struct {
	Active  []string                 `json:"active"`
	Archive map[string]missionRecord `json:"archive"`
}

type missionRecord struct {
	ID          string   `json:"id"`
	Creator     int64    `json:"creator"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	ApprovedBy  int64    `json:"approved_by,omitempty"`
	ApprovedAt  string   `json:"approved_at,omitempty"`
	RejectedBy  int64    `json:"rejected_by,omitempty"`
	RejectedAt  string   `json:"rejected_at,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
	CompletedBy []int64  `json:"completed_by"`
}

type commandSection struct {
	CallSigns         map[string]string                  `json:"call_signs"`
	Tickets           map[string]ticketRecord            `json:"tickets"`
	Activity          map[string]string                  `json:"activity"`
	TempActions       map[string]pendingRecord           `json:"temp_actions"`
	TempMissions      map[string]pendingRecord           `json:"temp_missions"`
	UserActiveTickets map[string]string                  `json:"user_active_tickets"`
	TicketResponses   map[string]map[string]deliveryInfo `json:"ticket_responses"`
}

type ticketRecord struct {
	ID         string        `json:"id"`
	UserID     int64         `json:"user_id"`
	Status     string        `json:"status"`
	CreatedAt  string        `json:"created_at"`
	UpdatedAt  string        `json:"updated_at"`
	ClosedAt   string        `json:"closed_at,omitempty"`
	AssignedTo int64         `json:"assigned_to,omitempty"`
	AssignedAt string        `json:"assigned_at,omitempty"`
	Log        []entryRecord `json:"log"`
}

type entryRecord struct {
	From      string `json:"from"`
	Author    int64  `json:"author,omitempty"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type pendingRecord struct {
	Action   string `json:"action"`
	Unit     string `json:"unit,omitempty"`
	Op       string `json:"op,omitempty"`
	Type     string `json:"type,omitempty"`
	Name     string `json:"name,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
}

type deliveryInfo struct {
	ChatID    int64  `json:"chat_id"`
	MessageID string `json:"message_id"`
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func idList(set map[domain.MemberID]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, int64(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot captures the whole store state under the lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Units: map[string][]int64{},
		Missions: missionsSection{
			Active:  append([]string(nil), s.state.RecentMissions...),
			Archive: map[string]missionRecord{},
		},
		Command: commandSection{
			CallSigns:         map[string]string{},
			Tickets:           map[string]ticketRecord{},
			Activity:          map[string]string{},
			TempActions:       map[string]pendingRecord{},
			TempMissions:      map[string]pendingRecord{},
			UserActiveTickets: map[string]string{},
			TicketResponses:   map[string]map[string]deliveryInfo{},
		},
		Subscribers: idList(s.state.Subscribers),
		CombatReady: idList(s.state.Ready),
		Usernames:   map[string]*string{},
	}

	for _, u := range domain.AllUnits {
		snap.Units[string(u)] = idList(s.state.Units[u])
	}

	for id, m := range s.state.Missions {
		snap.Missions.Archive[id] = missionRecord{
			ID:          m.ID,
			Creator:     int64(m.Creator),
			Type:        string(m.Scope),
			Name:        m.Name,
			Content:     m.Content,
			Status:      string(m.Status),
			CreatedAt:   fmtTime(m.CreatedAt),
			ApprovedBy:  int64(m.ApprovedBy),
			ApprovedAt:  fmtTime(m.ApprovedAt),
			RejectedBy:  int64(m.RejectedBy),
			RejectedAt:  fmtTime(m.RejectedAt),
			CompletedAt: fmtTime(m.CompletedAt),
			CompletedBy: idList(m.CompletedBy),
		}
	}

	for id, c := range s.state.Callsigns {
		snap.Command.CallSigns[strconv.FormatInt(int64(id), 10)] = c
	}
	for id, at := range s.state.Activity {
		snap.Command.Activity[strconv.FormatInt(int64(id), 10)] = fmtTime(at)
	}
	for id, ticketID := range s.state.ActiveTicket {
		snap.Command.UserActiveTickets[strconv.FormatInt(int64(id), 10)] = ticketID
	}
	for id, name := range s.state.DisplayNames {
		if name == "" {
			snap.Usernames[strconv.FormatInt(int64(id), 10)] = nil
		} else {
			n := name
			snap.Usernames[strconv.FormatInt(int64(id), 10)] = &n
		}
	}

	for id, t := range s.state.Tickets {
		rec := ticketRecord{
			ID:         t.ID,
			UserID:     int64(t.Owner),
			Status:     string(t.Status),
			CreatedAt:  fmtTime(t.CreatedAt),
			UpdatedAt:  fmtTime(t.UpdatedAt),
			ClosedAt:   fmtTime(t.ClosedAt),
			AssignedTo: int64(t.AssignedTo),
			AssignedAt: fmtTime(t.AssignedAt),
		}
		for _, e := range t.Log {
			rec.Log = append(rec.Log, entryRecord{
				From:      string(e.From),
				Author:    int64(e.Author),
				Text:      e.Text,
				Timestamp: fmtTime(e.At),
			})
		}
		snap.Command.Tickets[id] = rec
	}

	for id, a := range s.state.Pending {
		rec := pendingRecord{
			Action:   string(a.Kind),
			Unit:     string(a.Unit),
			Op:       string(a.Op),
			Type:     string(a.Scope),
			Name:     a.Name,
			TicketID: a.TicketID,
		}
		key := strconv.FormatInt(int64(id), 10)
		// Mission-creation input keeps its historical home under
		// temp_missions; everything else goes to temp_actions.
		if a.Kind == domain.PendingMissionName || a.Kind == domain.PendingMissionContent {
			snap.Command.TempMissions[key] = rec
		} else {
			snap.Command.TempActions[key] = rec
		}
	}

	for entityID, refs := range s.state.Routing {
		m := map[string]deliveryInfo{}
		for cmdr, ref := range refs {
			m[strconv.FormatInt(int64(cmdr), 10)] = deliveryInfo{
				ChatID:    int64(ref.ChatID),
				MessageID: ref.MessageID,
			}
		}
		snap.Command.TicketResponses[entityID] = m
	}

	return snap
}

// Restore replaces the store state with the decoded snapshot. The admin
// allow-list is reapplied on top so admins always remain commanders even if
// the snapshot predates their configuration.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := newState()

	for _, u := range domain.AllUnits {
		for _, id := range snap.Units[string(u)] {
			st.Units[u][domain.MemberID(id)] = struct{}{}
		}
	}
	for id := range s.admins {
		st.Units[domain.UnitCenturions][id] = struct{}{}
		st.Subscribers[id] = struct{}{}
	}

	st.RecentMissions = append(st.RecentMissions, snap.Missions.Active...)
	if over := len(st.RecentMissions) - s.maxRecent; over > 0 {
		st.RecentMissions = st.RecentMissions[over:]
	}
	for id, rec := range snap.Missions.Archive {
		m := &domain.Mission{
			ID:          rec.ID,
			Creator:     domain.MemberID(rec.Creator),
			Scope:       domain.MissionScope(rec.Type),
			Name:        rec.Name,
			Content:     rec.Content,
			Status:      domain.MissionStatus(rec.Status),
			CreatedAt:   parseTime(rec.CreatedAt),
			ApprovedBy:  domain.MemberID(rec.ApprovedBy),
			ApprovedAt:  parseTime(rec.ApprovedAt),
			RejectedBy:  domain.MemberID(rec.RejectedBy),
			RejectedAt:  parseTime(rec.RejectedAt),
			CompletedAt: parseTime(rec.CompletedAt),
			CompletedBy: map[domain.MemberID]struct{}{},
		}
		// Approved never persists as a resting state.
		if m.Status == domain.MissionApproved {
			m.Status = domain.MissionActive
		}
		for _, mid := range rec.CompletedBy {
			m.CompletedBy[domain.MemberID(mid)] = struct{}{}
		}
		st.Missions[id] = m
	}

	for key, c := range snap.Command.CallSigns {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			st.Callsigns[domain.MemberID(id)] = c
		}
	}
	for key, at := range snap.Command.Activity {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			st.Activity[domain.MemberID(id)] = parseTime(at)
		}
	}
	for key, ticketID := range snap.Command.UserActiveTickets {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			st.ActiveTicket[domain.MemberID(id)] = ticketID
		}
	}
	for key, name := range snap.Usernames {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			if name != nil {
				st.DisplayNames[domain.MemberID(id)] = *name
			} else {
				st.DisplayNames[domain.MemberID(id)] = ""
			}
		}
	}

	for id, rec := range snap.Command.Tickets {
		t := &domain.Ticket{
			ID:         rec.ID,
			Owner:      domain.MemberID(rec.UserID),
			Status:     domain.TicketStatus(rec.Status),
			CreatedAt:  parseTime(rec.CreatedAt),
			UpdatedAt:  parseTime(rec.UpdatedAt),
			ClosedAt:   parseTime(rec.ClosedAt),
			AssignedTo: domain.MemberID(rec.AssignedTo),
			AssignedAt: parseTime(rec.AssignedAt),
		}
		for _, e := range rec.Log {
			t.Log = append(t.Log, domain.TicketEntry{
				From:   domain.TicketEntrySource(e.From),
				Author: domain.MemberID(e.Author),
				Text:   e.Text,
				At:     parseTime(e.Timestamp),
			})
		}
		st.Tickets[id] = t
	}

	restorePending := func(m map[string]pendingRecord) {
		for key, rec := range m {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			st.Pending[domain.MemberID(id)] = &domain.PendingAction{
				Kind:     domain.PendingKind(rec.Action),
				Unit:     domain.Unit(rec.Unit),
				Op:       domain.UnitOp(rec.Op),
				Scope:    domain.MissionScope(rec.Type),
				Name:     rec.Name,
				TicketID: rec.TicketID,
			}
		}
	}
	restorePending(snap.Command.TempActions)
	restorePending(snap.Command.TempMissions)

	for entityID, refs := range snap.Command.TicketResponses {
		m := map[domain.MemberID]domain.DeliveryRef{}
		for key, info := range refs {
			if cmdr, err := strconv.ParseInt(key, 10, 64); err == nil {
				m[domain.MemberID(cmdr)] = domain.DeliveryRef{
					ChatID:    domain.MemberID(info.ChatID),
					MessageID: info.MessageID,
				}
			}
		}
		if len(m) > 0 {
			st.Routing[entityID] = m
		}
	}

	s.state = st
}
