// Package domain defines the core entities of the squad coordination
// system: units, missions, tickets, and per-member pending actions.
// These types are plain values; persistence concerns (set ordering,
// string map keys, timestamp formats) live in internal/store.
package domain

import (
	"fmt"
	"time"
)

// MemberID is the stable numeric identifier of a squad member, as assigned
// by the chat transport.
type MemberID int64

// Unit is one of the three mutually exclusive membership tiers.
type Unit string

const (
	// UnitCenturions is the senior command tier.
	UnitCenturions Unit = "centurions"
	// UnitDecurions is the mid command tier.
	UnitDecurions Unit = "decurions"
	// UnitPrivates is the rank-and-file tier.
	UnitPrivates Unit = "privates"
)

// AllUnits lists every tier in seniority order. Snapshot serialization and
// deregistration iterate this slice, so the order is stable.
var AllUnits = []Unit{UnitCenturions, UnitDecurions, UnitPrivates}

// Valid reports whether u names a known tier.
func (u Unit) Valid() bool {
	switch u {
	case UnitCenturions, UnitDecurions, UnitPrivates:
		return true
	}
	return false
}

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionPending   MissionStatus = "Pending"
	MissionActive    MissionStatus = "Active"
	MissionCompleted MissionStatus = "Completed"
	// MissionApproved is transient: approval immediately coerces to Active.
	// It exists only so legacy snapshots that recorded it still decode.
	MissionApproved MissionStatus = "Approved"
	MissionRejected MissionStatus = "Rejected"
)

// MissionScope selects which units a mission targets.
type MissionScope string

const (
	// ScopeAll targets every tier.
	ScopeAll MissionScope = "all"
	// ScopeDecurions targets the mid tier and above.
	ScopeDecurions MissionScope = "decurions"
	// ScopePrivates targets rank-and-file only.
	ScopePrivates MissionScope = "privates"
)

// TargetUnits expands the scope into the concrete unit set.
func (s MissionScope) TargetUnits() []Unit {
	switch s {
	case ScopeAll:
		return AllUnits
	case ScopeDecurions:
		return []Unit{UnitDecurions, UnitCenturions}
	default:
		return []Unit{UnitPrivates}
	}
}

// Mission is a broadcast directive. Missions are archived permanently and
// mutated only through status transitions; CompletedBy records which
// targeted members have reported completion.
type Mission struct {
	ID        string
	Creator   MemberID
	Scope     MissionScope
	Name      string
	Content   string
	Status    MissionStatus
	CreatedAt time.Time

	ApprovedBy  MemberID
	ApprovedAt  time.Time
	RejectedBy  MemberID
	RejectedAt  time.Time
	CompletedAt time.Time

	CompletedBy map[MemberID]struct{}
}

// NewMissionID derives the mission identifier from its creator and the
// creation instant. Two missions by the same creator within one second
// collide; the original system accepted this.
func NewMissionID(creator MemberID, at time.Time) string {
	return fmt.Sprintf("mission_%d_%d", creator, at.Unix())
}

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// TicketEntrySource tags who authored a ticket log entry.
type TicketEntrySource string

const (
	EntryFromMember    TicketEntrySource = "user"
	EntryFromCommander TicketEntrySource = "commander"
)

// TicketEntry is one chronological element of a ticket's message log.
type TicketEntry struct {
	From TicketEntrySource
	// Author is set for commander entries; member entries always come
	// from the ticket owner.
	Author MemberID
	Text   string
	At     time.Time
}

// Ticket is a member-initiated support case with a two-party dialog once
// assigned. At most one non-closed ticket may exist per member.
type Ticket struct {
	ID         string
	Owner      MemberID
	Status     TicketStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   time.Time
	AssignedTo MemberID
	AssignedAt time.Time
	Log        []TicketEntry
}

// NewTicketID derives the ticket identifier from its owner and the
// creation instant.
func NewTicketID(owner MemberID, at time.Time) string {
	return fmt.Sprintf("ticket_%d_%d", owner, at.Unix())
}

// PendingKind discriminates which multi-step workflow owns a member's next
// free-text message.
type PendingKind string

const (
	PendingCallsign       PendingKind = "set_call_sign"
	PendingUnitMemberID   PendingKind = "unit_member_id"
	PendingMissionName    PendingKind = "mission_name"
	PendingMissionContent PendingKind = "mission_content"
	PendingTicketText     PendingKind = "ticket_text"
	PendingTicketResponse PendingKind = "ticket_response"
)

// UnitOp is the pending unit-management operation.
type UnitOp string

const (
	UnitOpAdd    UnitOp = "add"
	UnitOpRemove UnitOp = "remove"
)

// PendingAction is the single outstanding structured-input state of a
// member. Exactly one workflow owns a member's next message; creating a new
// pending action replaces any previous one (last action wins).
type PendingAction struct {
	Kind PendingKind

	// Unit management input (Kind == PendingUnitMemberID).
	Unit Unit
	Op   UnitOp

	// Mission creation input (PendingMissionName, PendingMissionContent).
	Scope MissionScope
	Name  string

	// Ticket response input (PendingTicketResponse).
	TicketID string
}

// DeliveryRef is an opaque transport handle to a previously sent message,
// kept only so interactive markup on that message can later be edited or
// stripped. It is never authoritative state.
type DeliveryRef struct {
	ChatID    MemberID
	MessageID string
}
