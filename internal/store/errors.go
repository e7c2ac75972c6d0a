package store

import "errors"

// Store-level error values. The service layer translates these into its own
// sentinel errors before they reach the conversation layer.
var (
	// ErrNotFound indicates the referenced mission or ticket id does not
	// exist in the archive.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyProcessed indicates an approval or rejection arrived for a
	// mission no longer Pending (double-click on a stale prompt).
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrMissionNotActive indicates a completion report for a mission that
	// is not currently Active.
	ErrMissionNotActive = errors.New("mission not active")

	// ErrDuplicateCompletion indicates the member already reported this
	// mission complete.
	ErrDuplicateCompletion = errors.New("completion already recorded")

	// ErrAlreadyCompleted indicates a finish request for a mission already
	// in the Completed state.
	ErrAlreadyCompleted = errors.New("mission already completed")

	// ErrTicketTaken indicates a take request for a ticket that is no
	// longer open.
	ErrTicketTaken = errors.New("ticket already in progress")

	// ErrTicketClosed indicates an operation on a closed ticket.
	ErrTicketClosed = errors.New("ticket closed")
)
