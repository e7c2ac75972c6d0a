package bot

import (
	"fmt"
	"strings"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/services"
	"github.com/cyberguard/squadbot/internal/transport"
)

// Menu button labels. The client renders these as persistent keyboard
// buttons whose press comes back as plain message text, so the router
// matches them in the command table.
const (
	CmdReady         = "Ready for Action!"
	CmdReport        = "Report to Command"
	CmdStatus        = "My Status"
	CmdHelp          = "/help"
	CmdCreateMission = "Create Mission"
	CmdSummary       = "Operation Summary"
	CmdManageUnits   = "Manage Units"
	CmdSetCallsign   = "Set Callsign"
	CmdActiveTickets = "Active Tickets"
)

// memberMenu is the persistent keyboard for rank-and-file members.
func memberMenu() *transport.Markup {
	return &transport.Markup{Rows: [][]transport.Button{
		{{Text: CmdReady, Data: CmdReady}, {Text: CmdReport, Data: CmdReport}},
		{{Text: CmdStatus, Data: CmdStatus}, {Text: CmdHelp, Data: CmdHelp}},
	}}
}

// commandMenu is the persistent keyboard for the command structure.
func commandMenu() *transport.Markup {
	return &transport.Markup{Rows: [][]transport.Button{
		{{Text: CmdCreateMission, Data: CmdCreateMission}, {Text: CmdSummary, Data: CmdSummary}},
		{{Text: CmdManageUnits, Data: CmdManageUnits}, {Text: CmdSetCallsign, Data: CmdSetCallsign}},
		{{Text: CmdActiveTickets, Data: CmdActiveTickets}, {Text: CmdHelp, Data: CmdHelp}},
	}}
}

// scopeKeyboard offers the mission scopes the creator is allowed to use.
func scopeKeyboard(scopes []domain.MissionScope) *transport.Markup {
	labels := map[domain.MissionScope]string{
		domain.ScopeAll:       "For All Units",
		domain.ScopeDecurions: "For Decurions Only",
		domain.ScopePrivates:  "For Privates Only",
	}
	m := &transport.Markup{}
	for _, sc := range scopes {
		m.Rows = append(m.Rows, []transport.Button{{
			Text: labels[sc],
			Data: services.CallbackData(services.CBMissionType, string(sc)),
		}})
	}
	return m
}

// unitPickKeyboard lists the tiers with their current sizes.
func unitPickKeyboard(sizes map[domain.Unit]int) *transport.Markup {
	m := &transport.Markup{}
	for _, u := range domain.AllUnits {
		m.Rows = append(m.Rows, []transport.Button{{
			Text: fmt.Sprintf("%s (%d)", capitalize(string(u)), sizes[u]),
			Data: services.CallbackData(services.CBManageUnits, string(u)),
		}})
	}
	return m
}

// unitActionKeyboard offers add/remove/list for one tier.
func unitActionKeyboard(u domain.Unit) *transport.Markup {
	return transport.Column(
		transport.Button{Text: "Add Member", Data: "add_to_" + string(u)},
		transport.Button{Text: "Remove Member", Data: "remove_from_" + string(u)},
		transport.Button{Text: "View List", Data: "list_" + string(u)},
	)
}

// rosterPageKeyboard adds previous/next paging buttons where applicable.
func rosterPageKeyboard(u domain.Unit, page, totalPages int) *transport.Markup {
	var row []transport.Button
	if page > 0 {
		row = append(row, transport.Button{
			Text: "⬅️ Previous",
			Data: fmt.Sprintf("list_%s_page_%d", u, page-1),
		})
	}
	if page+1 < totalPages {
		row = append(row, transport.Button{
			Text: "Next ➡️",
			Data: fmt.Sprintf("list_%s_page_%d", u, page+1),
		})
	}
	if len(row) == 0 {
		return nil
	}
	return transport.Row(row...)
}

// finishButtons builds one finish button per active mission, for commander
// views.
func finishButtons(missions []domain.Mission) *transport.Markup {
	m := &transport.Markup{}
	for _, ms := range missions {
		if ms.Status != domain.MissionActive {
			continue
		}
		m.Rows = append(m.Rows, []transport.Button{{
			Text: "Complete: " + ms.Name,
			Data: services.CallbackData(services.CBFinishMission, ms.ID),
		}})
	}
	if len(m.Rows) == 0 {
		return nil
	}
	return m
}

// ticketReplyKeyboard mirrors the reply/close keyboard the dispatcher puts
// on commander prompts, for the /ticket detail view.
func ticketReplyKeyboard(ticketID string) *transport.Markup {
	return transport.Row(
		transport.Button{Text: "✉️ Reply", Data: services.CallbackData(services.CBRespondTicket, ticketID)},
		transport.Button{Text: "🔒 Close ticket", Data: services.CallbackData(services.CBCloseTicket, ticketID)},
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
