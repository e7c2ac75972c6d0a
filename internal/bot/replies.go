package bot

import (
	"errors"

	"github.com/cyberguard/squadbot/internal/services"
)

const msgNoPermission = "❌ Insufficient permissions!"

// errText maps service errors to the user-facing reply.
func errText(err error) string {
	switch {
	case errors.Is(err, services.ErrNoPermission):
		return msgNoPermission
	case errors.Is(err, services.ErrMissionNotFound):
		return "❌ Mission not found!"
	case errors.Is(err, services.ErrMissionProcessed):
		return "❌ Mission already processed!"
	case errors.Is(err, services.ErrMissionNotActive):
		return "❌ Mission is not active!"
	case errors.Is(err, services.ErrAlreadyReported):
		return "ℹ️ You have already reported completion of this mission!"
	case errors.Is(err, services.ErrMissionFinished):
		return "Mission is already completed!"
	case errors.Is(err, services.ErrNameTooLong):
		return "❌ Mission name too long!"
	case errors.Is(err, services.ErrTicketNotFound):
		return "❌ Ticket not found!"
	case errors.Is(err, services.ErrTicketTaken):
		return "❌ Ticket is already being handled!"
	case errors.Is(err, services.ErrTicketClosed):
		return "❌ Ticket is closed!"
	case errors.Is(err, services.ErrActiveTicketExists):
		return "ℹ️ You already have an active ticket!"
	case errors.Is(err, services.ErrNoActiveTicket):
		return "No active ticket to close."
	case errors.Is(err, services.ErrTicketUnassigned):
		return "⏳ Your ticket is waiting to be assigned to a commander."
	case errors.Is(err, services.ErrCallsignTooLong):
		return "❌ Callsign too long!"
	case errors.Is(err, services.ErrEmptyText):
		return "❌ The message text is empty, please try again."
	case errors.Is(err, services.ErrBadMemberID):
		return "❌ Invalid ID format!"
	case errors.Is(err, services.ErrUnknownUnit):
		return "❌ Unknown unit!"
	case errors.Is(err, services.ErrNotInUnit):
		return "❌ Member is not in this unit."
	}
	return "❌ An error occurred, please try again later."
}
