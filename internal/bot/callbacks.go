package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/services"
	"github.com/cyberguard/squadbot/internal/utils"
)

const rosterPageSize = 10

// handleCallback dispatches a button press by its payload.
func (b *Bot) handleCallback(ctx context.Context, u Update) {
	data := strings.TrimSpace(u.Callback)

	// Unit actions carry the tier inside the payload instead of a
	// verb:arg pair.
	switch {
	case strings.HasPrefix(data, "add_to_"):
		b.onUnitMemberPrompt(ctx, u, domain.Unit(strings.TrimPrefix(data, "add_to_")), domain.UnitOpAdd)
		return
	case strings.HasPrefix(data, "remove_from_"):
		b.onUnitMemberPrompt(ctx, u, domain.Unit(strings.TrimPrefix(data, "remove_from_")), domain.UnitOpRemove)
		return
	case strings.HasPrefix(data, "list_"):
		b.onUnitRoster(ctx, u.Member, data)
		return
	}

	verb, arg, ok := strings.Cut(data, ":")
	if !ok {
		// A persistent menu button press echoes its command label.
		b.handleCommand(ctx, u.Member, data)
		return
	}

	switch verb {
	case services.CBMissionType:
		b.onMissionType(ctx, u.Member, domain.MissionScope(arg))
	case services.CBApproveMission:
		if m, err := b.Missions.Approve(ctx, arg, u.Member); err != nil {
			b.reply(ctx, u.Member, errText(err), nil)
		} else {
			b.reply(ctx, u.Member, fmt.Sprintf("✅ Mission %q approved and launched!", m.Name), nil)
		}
	case services.CBRejectMission:
		if m, err := b.Missions.Reject(ctx, arg, u.Member); err != nil {
			b.reply(ctx, u.Member, errText(err), nil)
		} else {
			b.reply(ctx, u.Member, fmt.Sprintf("❌ Mission %q rejected.", m.Name), nil)
		}
	case services.CBCompleteMission:
		if _, err := b.Missions.ReportCompleted(ctx, arg, u.Member); err != nil {
			b.reply(ctx, u.Member, errText(err), nil)
		} else {
			b.reply(ctx, u.Member, "✅ Your report has been accepted! Thank you for your participation.", nil)
		}
	case services.CBFinishMission:
		b.onFinishMission(ctx, u.Member, arg)
	case services.CBTakeTicket:
		if _, err := b.Tickets.Take(ctx, arg, u.Member); err != nil {
			b.reply(ctx, u.Member, errText(err), nil)
		} else {
			b.reply(ctx, u.Member, "✅ You have taken the ticket.", nil)
		}
	case services.CBRespondTicket:
		b.onRespondPrompt(ctx, u.Member, arg)
	case services.CBCloseTicket:
		if _, err := b.Tickets.Close(ctx, arg, u.Member); err != nil {
			b.reply(ctx, u.Member, errText(err), nil)
		}
	case services.CBManageUnits:
		b.onUnitPicked(ctx, u.Member, domain.Unit(arg))
	default:
		b.log.Warn().Str("data", data).Msg("unknown callback payload")
	}
}

// onMissionType records the chosen scope and asks for the mission name.
func (b *Bot) onMissionType(ctx context.Context, member domain.MemberID, scope domain.MissionScope) {
	allowed := false
	for _, sc := range b.Missions.AllowedScopes(member) {
		if sc == scope {
			allowed = true
			break
		}
	}
	if !allowed {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	b.Store.SetPending(member, domain.PendingAction{
		Kind:  domain.PendingMissionName,
		Scope: scope,
	})
	b.reply(ctx, member, fmt.Sprintf(
		"⚡ Create New Mission\nType: %s\nEnter mission name (max %d characters):",
		capitalize(string(scope)), b.Missions.MaxNameLen), nil)
}

// onRespondPrompt arms the structured reply flow for a ticket.
func (b *Bot) onRespondPrompt(ctx context.Context, member domain.MemberID, ticketID string) {
	if !b.Store.IsCommander(member) {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	if _, err := b.Tickets.Ticket(ticketID); err != nil {
		b.reply(ctx, member, errText(err), nil)
		return
	}
	b.Store.SetPending(member, domain.PendingAction{
		Kind:     domain.PendingTicketResponse,
		TicketID: ticketID,
	})
	b.reply(ctx, member, fmt.Sprintf("✉️ Enter your response for ticket %s:", ticketID), nil)
}

// onUnitPicked shows the add/remove/list actions for one tier.
func (b *Bot) onUnitPicked(ctx context.Context, member domain.MemberID, unit domain.Unit) {
	if !b.Store.IsCommander(member) {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	if !unit.Valid() {
		b.reply(ctx, member, errText(services.ErrUnknownUnit), nil)
		return
	}
	b.reply(ctx, member, fmt.Sprintf("⚙️ Managing %s Unit", capitalize(string(unit))), unitActionKeyboard(unit))
}

// onUnitMemberPrompt arms the member-id input for an add or remove and
// strips the buttons from the pressed message.
func (b *Bot) onUnitMemberPrompt(ctx context.Context, u Update, unit domain.Unit, op domain.UnitOp) {
	if !b.Store.IsCommander(u.Member) {
		b.reply(ctx, u.Member, msgNoPermission, nil)
		return
	}
	if !unit.Valid() {
		b.reply(ctx, u.Member, errText(services.ErrUnknownUnit), nil)
		return
	}
	if u.Ref != (domain.DeliveryRef{}) {
		if err := b.Dispatch.TX.EditMessageMarkup(ctx, u.Ref, nil); err != nil {
			b.log.Error().Err(err).Msg("stripping unit action buttons failed")
		}
	}
	b.Store.SetPending(u.Member, domain.PendingAction{
		Kind: domain.PendingUnitMemberID,
		Unit: unit,
		Op:   op,
	})
	action := "Adding member to"
	if op == domain.UnitOpRemove {
		action = "Removing member from"
	}
	b.reply(ctx, u.Member, fmt.Sprintf(
		"🆔 %s %s\nEnter member ID:", action, capitalize(string(unit))), nil)
}

// onUnitRoster renders one page of a tier's member list. The payload is
// either list_<unit> or list_<unit>_page_<n>.
func (b *Bot) onUnitRoster(ctx context.Context, member domain.MemberID, data string) {
	rest := strings.TrimPrefix(data, "list_")
	unit := rest
	page := 0
	if i := strings.Index(rest, "_page_"); i >= 0 {
		unit = rest[:i]
		page = utils.AtoiDefault(rest[i+len("_page_"):], 0)
	}

	roster, err := b.Members.Roster(member, domain.Unit(unit))
	if err != nil {
		b.reply(ctx, member, errText(err), nil)
		return
	}
	if len(roster) == 0 {
		b.reply(ctx, member, fmt.Sprintf("No members in %s unit.", unit), nil)
		return
	}

	entries, totalPages := utils.Paginate(roster, page, rosterPageSize)
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 %s List\nTotal: %d\nPage %d of %d\n",
		capitalize(unit), len(roster), page+1, totalPages)
	for _, e := range entries {
		fmt.Fprintf(&sb, "- %s (ID: %d) — %s\n", e.DisplayName, e.ID, medalCount(e.Completed))
	}
	b.reply(ctx, member, sb.String(), rosterPageKeyboard(domain.Unit(unit), page, totalPages))
}

// medalCount renders the completed-mission tally with its award.
func medalCount(completed int) string {
	if completed == 0 {
		return "0"
	}
	if m := services.Medal(completed); m != "" {
		return fmt.Sprintf("%s %d", m, completed)
	}
	return fmt.Sprintf("%d", completed)
}
