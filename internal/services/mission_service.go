// Package services – MissionService
//
// This file implements the mission lifecycle: role-gated creation, approval
// gating for missions that need command sign-off, distribution to the
// target units, per-member completion tracking with a live quorum check,
// and the explicit command action that closes the record.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// mission and actor identifiers.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/store"
	"github.com/cyberguard/squadbot/internal/transport"
)

// Callback verbs carried in inline-button payloads, shared between the
// prompt builders here and the parser in internal/bot.
const (
	CBApproveMission  = "approve_mission"
	CBRejectMission   = "reject_mission"
	CBCompleteMission = "complete_mission"
	CBFinishMission   = "finish_mission"
	CBTakeTicket      = "take_ticket"
	CBRespondTicket   = "respond_ticket"
	CBCloseTicket     = "close_ticket"
	CBMissionType     = "mission_type"
	CBManageUnits     = "manage_units"
)

// CallbackData joins a verb and an argument into a button payload.
func CallbackData(verb, arg string) string { return verb + ":" + arg }

// MissionService owns the mission state machine.
type MissionService struct {
	Store    *store.Store
	Dispatch *Dispatcher

	// MaxNameLen caps mission names by rune length.
	MaxNameLen int

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewMissionService constructs a MissionService with the given name limit.
func NewMissionService(st *store.Store, d *Dispatcher, maxNameLen int) *MissionService {
	return &MissionService{Store: st, Dispatch: d, MaxNameLen: maxNameLen, Now: time.Now}
}

// ValidateName normalizes a proposed mission name and enforces the length
// cap. Returned unchanged state on error lets the router re-prompt.
func (s *MissionService) ValidateName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(name) > s.MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// AllowedScopes returns the mission scopes the creator may target, in menu
// order. Empty means the member may not create missions at all.
func (s *MissionService) AllowedScopes(creator domain.MemberID) []domain.MissionScope {
	isCmdr := s.Store.IsCommander(creator)
	isCent := s.Store.InUnit(creator, domain.UnitCenturions)
	isDec := s.Store.InUnit(creator, domain.UnitDecurions)

	var out []domain.MissionScope
	if isCmdr || isCent {
		out = append(out, domain.ScopeAll, domain.ScopeDecurions)
	}
	if isCmdr || isCent || isDec {
		out = append(out, domain.ScopePrivates)
	}
	return out
}

// Create builds a mission for the creator. Senior tier may target any
// scope; mid tier only rank-and-file, and those enter Pending with an
// approval request fanned out to the senior tier. Everything else goes
// straight to Active and is distributed immediately. The returned flag
// reports whether the mission awaits approval.
func (s *MissionService) Create(ctx context.Context, creator domain.MemberID, scope domain.MissionScope, name, content string) (domain.Mission, bool, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("member.id", int64(creator)),
			attribute.String("mission.scope", string(scope)),
		),
	)
	defer span.End()

	isCmdr := s.Store.IsCommander(creator)
	isCent := s.Store.InUnit(creator, domain.UnitCenturions)
	isDec := s.Store.InUnit(creator, domain.UnitDecurions)

	switch scope {
	case domain.ScopeAll, domain.ScopeDecurions:
		if !isCmdr && !isCent {
			return domain.Mission{}, false, ErrNoPermission
		}
	case domain.ScopePrivates:
		if !isCmdr && !isCent && !isDec {
			return domain.Mission{}, false, ErrNoPermission
		}
	default:
		return domain.Mission{}, false, ErrNoPermission
	}

	name, err := s.ValidateName(name)
	if err != nil {
		return domain.Mission{}, false, err
	}

	now := s.Now()
	m := domain.Mission{
		ID:          domain.NewMissionID(creator, now),
		Creator:     creator,
		Scope:       scope,
		Name:        name,
		Content:     content,
		Status:      domain.MissionActive,
		CreatedAt:   now,
		CompletedBy: map[domain.MemberID]struct{}{},
	}

	// Rank-and-file scope from the mid tier needs senior sign-off.
	needsApproval := scope == domain.ScopePrivates && !isCmdr && !isCent
	if needsApproval {
		m.Status = domain.MissionPending
		s.Store.PutMission(m)
		s.requestApproval(ctx, m)
		return m, true, nil
	}

	s.Store.PutMission(m)
	s.Distribute(ctx, m)
	return m, false, nil
}

// requestApproval fans the approval prompt out to the senior tier,
// tracking each delivered prompt so its buttons can be retired after the
// decision.
func (s *MissionService) requestApproval(ctx context.Context, m domain.Mission) {
	markup := transport.Row(
		transport.Button{Text: "✅ Approve", Data: CallbackData(CBApproveMission, m.ID)},
		transport.Button{Text: "❌ Reject", Data: CallbackData(CBRejectMission, m.ID)},
	)
	text := fmt.Sprintf(
		"🔐 Mission approval request\nCreator: %s\nScope: %s\nName: %s\nContent:\n%s",
		s.Store.DisplayName(m.Creator), m.Scope, m.Name, m.Content,
	)
	res := s.Dispatch.Fanout(ctx, s.Store.UnitMembers(domain.UnitCenturions), text, markup)
	for cmdr, ref := range res.Delivered {
		s.Store.TrackPrompt(m.ID, cmdr, ref)
	}
}

// Distribute announces the mission to the union of its target units. Each
// recipient gets a completion button; unreachable recipients are handled by
// the dispatcher.
func (s *MissionService) Distribute(ctx context.Context, m domain.Mission) FanoutResult {
	markup := transport.Row(transport.Button{
		Text: "✅ Completed",
		Data: CallbackData(CBCompleteMission, m.ID),
	})
	text := fmt.Sprintf("⚡ Mission: %s\n%s", m.Name, m.Content)
	return s.Dispatch.Fanout(ctx, s.Store.TargetUnion(m.Scope.TargetUnits()), text, markup)
}

// Approve moves a Pending mission to Active, distributes it, notifies the
// creator, and retires the approval prompts. A second approval reports
// ErrMissionProcessed and has no side effects.
func (s *MissionService) Approve(ctx context.Context, missionID string, approver domain.MemberID) (domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Approve",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.Int64("member.id", int64(approver)),
		),
	)
	defer span.End()

	if !s.Store.IsCommander(approver) {
		return domain.Mission{}, ErrNoPermission
	}
	m, err := s.Store.ApproveMission(missionID, approver, s.Now())
	if err != nil {
		return domain.Mission{}, mapMissionErr(err)
	}

	s.Distribute(ctx, m)
	s.Dispatch.Send(ctx, m.Creator, //nolint:errcheck
		fmt.Sprintf("✅ Your mission %q has been approved!\nIt has been distributed to the appropriate units.", m.Name), nil)
	s.Dispatch.RetirePrompts(ctx, m.ID)
	return m, nil
}

// Reject moves a Pending mission to Rejected and notifies the creator.
func (s *MissionService) Reject(ctx context.Context, missionID string, rejecter domain.MemberID) (domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Reject",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.Int64("member.id", int64(rejecter)),
		),
	)
	defer span.End()

	if !s.Store.IsCommander(rejecter) {
		return domain.Mission{}, ErrNoPermission
	}
	m, err := s.Store.RejectMission(missionID, rejecter, s.Now())
	if err != nil {
		return domain.Mission{}, mapMissionErr(err)
	}

	s.Dispatch.Send(ctx, m.Creator, //nolint:errcheck
		fmt.Sprintf("❌ Your mission %q has been rejected.\nCommand has determined this mission should not proceed.", m.Name), nil)
	s.Dispatch.RetirePrompts(ctx, m.ID)
	return m, nil
}

// ReportCompleted records the member's completion mark. Reaching quorum
// (every member of the live target union has reported) announces the
// achievement to everyone who reported, but does not set the authoritative
// Completed status; that is Finish's job.
func (s *MissionService) ReportCompleted(ctx context.Context, missionID string, member domain.MemberID) (store.CompletionResult, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "ReportCompleted",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.Int64("member.id", int64(member)),
		),
	)
	defer span.End()

	res, err := s.Store.MarkMissionCompleted(missionID, member, s.Now())
	if err != nil {
		return store.CompletionResult{}, mapMissionErr(err)
	}
	span.SetAttributes(attribute.Int("mission.done", res.Done), attribute.Int("mission.total", res.Total))

	if res.Quorum {
		text := fmt.Sprintf("✅ Mission %q completed!\nThank you for your participation.", res.Mission.Name)
		s.Dispatch.Fanout(ctx, completedMembers(res.Mission), text, nil)
	}
	return res, nil
}

// Finish sets the authoritative Completed status and notifies everyone who
// reported completion. Commander-only; finishing twice reports
// ErrMissionFinished without re-notifying.
func (s *MissionService) Finish(ctx context.Context, missionID string, commander domain.MemberID) (domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Finish",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.Int64("member.id", int64(commander)),
		),
	)
	defer span.End()

	if !s.Store.IsCommander(commander) {
		return domain.Mission{}, ErrNoPermission
	}
	m, err := s.Store.FinishMission(missionID, s.Now())
	if err != nil {
		return domain.Mission{}, mapMissionErr(err)
	}

	text := fmt.Sprintf("✅ Mission %q has been completed by command!", m.Name)
	s.Dispatch.Fanout(ctx, completedMembers(m), text, nil)
	return m, nil
}

// Mission returns the archived mission.
func (s *MissionService) Mission(missionID string) (domain.Mission, error) {
	m, err := s.Store.Mission(missionID)
	if err != nil {
		return domain.Mission{}, mapMissionErr(err)
	}
	return m, nil
}

func completedMembers(m domain.Mission) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(m.CompletedBy))
	for id := range m.CompletedBy {
		out = append(out, id)
	}
	// Stable order keeps fan-outs deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mapMissionErr(err error) error {
	switch err {
	case store.ErrNotFound:
		return ErrMissionNotFound
	case store.ErrAlreadyProcessed:
		return ErrMissionProcessed
	case store.ErrMissionNotActive:
		return ErrMissionNotActive
	case store.ErrDuplicateCompletion:
		return ErrAlreadyReported
	case store.ErrAlreadyCompleted:
		return ErrMissionFinished
	}
	return err
}
