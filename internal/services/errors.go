// Package services implements the squad workflows: member onboarding and
// roles, mission lifecycle, ticket lifecycle, and notification fan-out.
// This file centralizes the service-level error values so they can be
// consistently returned by service methods and checked by callers with
// errors.Is. Translation into user-facing replies happens in internal/bot.
package services

import "errors"

// Permission and lookup errors.
var (
	// ErrNoPermission indicates the actor lacks the role required for the
	// requested operation. No state changes.
	ErrNoPermission = errors.New("insufficient permissions")

	// ErrMissionNotFound indicates the referenced mission id is not in the
	// archive.
	ErrMissionNotFound = errors.New("mission not found")

	// ErrTicketNotFound indicates the referenced ticket id does not exist.
	ErrTicketNotFound = errors.New("ticket not found")
)

// Idempotency errors: the entity is no longer in the state the operation
// requires. Surfaced with a distinct message, never escalated.
var (
	// ErrMissionProcessed is returned for an approve or reject of a
	// mission that already left Pending (double-click on a stale prompt).
	ErrMissionProcessed = errors.New("mission already processed")

	// ErrMissionNotActive is returned for a completion report against a
	// mission that is not Active.
	ErrMissionNotActive = errors.New("mission not active")

	// ErrAlreadyReported is returned when a member reports completion of
	// a mission twice.
	ErrAlreadyReported = errors.New("completion already reported")

	// ErrMissionFinished is returned for a finish of an already-Completed
	// mission.
	ErrMissionFinished = errors.New("mission already completed")

	// ErrTicketTaken is returned for a take of a ticket that is no longer
	// open.
	ErrTicketTaken = errors.New("ticket already in progress")

	// ErrTicketClosed is returned for operations on a closed ticket.
	ErrTicketClosed = errors.New("ticket already closed")
)

// Workflow-state errors.
var (
	// ErrActiveTicketExists is returned when a member who already has a
	// non-closed ticket tries to open another one.
	ErrActiveTicketExists = errors.New("active ticket exists")

	// ErrNoActiveTicket is returned when a close request finds nothing to
	// close for the requester.
	ErrNoActiveTicket = errors.New("no active ticket")

	// ErrTicketUnassigned is returned when a dialog message arrives for a
	// ticket that no commander has taken yet.
	ErrTicketUnassigned = errors.New("ticket not assigned")
)

// Validation errors. The pending-action state is preserved on these so the
// member can retry.
var (
	// ErrNameTooLong is returned when a mission name exceeds the
	// configured limit.
	ErrNameTooLong = errors.New("mission name too long")

	// ErrCallsignTooLong is returned when a callsign exceeds the
	// configured limit.
	ErrCallsignTooLong = errors.New("callsign too long")

	// ErrEmptyText is returned when required free-text input is blank.
	ErrEmptyText = errors.New("text is empty")

	// ErrBadMemberID is returned when numeric member-id input does not
	// parse.
	ErrBadMemberID = errors.New("invalid member id")

	// ErrUnknownUnit is returned for an unknown tier name.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrNotInUnit is returned when removing a member from a tier they
	// are not part of.
	ErrNotInUnit = errors.New("member not in unit")
)
