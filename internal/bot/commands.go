package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/services"
)

// handleCommand dispatches a plain message through the fixed command
// table. Unmatched messages are dropped.
func (b *Bot) handleCommand(ctx context.Context, member domain.MemberID, text string) {
	switch {
	case text == "/start":
		b.onStart(ctx, member)
	case text == CmdReady:
		b.onReady(ctx, member)
	case text == CmdReport:
		b.onReport(ctx, member)
	case text == CmdStatus:
		b.onStatus(ctx, member)
	case text == CmdHelp:
		b.onHelp(ctx, member)
	case text == CmdCreateMission:
		b.onCreateMission(ctx, member)
	case text == CmdSummary:
		b.onSummary(ctx, member)
	case text == CmdManageUnits:
		b.onManageUnits(ctx, member)
	case text == CmdSetCallsign:
		b.onSetCallsign(ctx, member)
	case text == CmdActiveTickets:
		b.onActiveTickets(ctx, member)
	case strings.HasPrefix(text, "/ticket"):
		b.onTicketLookup(ctx, member, commandArg(text, "/ticket"))
	case strings.HasPrefix(text, "/finish_mission"):
		b.onFinishMission(ctx, member, commandArg(text, "/finish_mission"))
	case strings.HasPrefix(text, "/close"):
		b.onClose(ctx, member)
	}
}

func commandArg(text, cmd string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, cmd))
}

func (b *Bot) onStart(ctx context.Context, member domain.MemberID) {
	res := b.Members.Onboard(member, "")
	switch {
	case res.Commander:
		b.reply(ctx, member,
			"⚔️ Command Center Activated!\n"+
				"Your operational authorities:\n"+
				"- Issue strategic directives\n"+
				"- Manage units\n"+
				"- Monitor mission execution\n"+
				"For the cause!",
			commandMenu())
	case res.Enrolled:
		b.reply(ctx, member,
			"🎖️ Welcome to the squad!\n"+
				"You've been assigned to the unit.\n"+
				"Click 'Ready for Action!' to receive missions.\n"+
				"Unity is strength!",
			memberMenu())
	case res.Ready:
		b.reply(ctx, member,
			"ℹ️ You are already active!\nAwait mission directives.",
			memberMenu())
	default:
		b.reply(ctx, member,
			"Welcome back! Click 'Ready for Action!' to confirm your status.",
			memberMenu())
	}
}

func (b *Bot) onReady(ctx context.Context, member domain.MemberID) {
	if b.Members.ConfirmReady(member) {
		b.reply(ctx, member,
			"ℹ️ You are already on duty!\nAwait mission assignments.",
			memberMenu())
		return
	}
	b.reply(ctx, member,
		"✅ Ready status confirmed!\nAwait mission assignments.",
		memberMenu())
}

func (b *Bot) onReport(ctx context.Context, member domain.MemberID) {
	if t, ok := b.Store.ActiveTicketOf(member); ok {
		b.reply(ctx, member, fmt.Sprintf(
			"ℹ️ You already have an active ticket!\nID: %s\nStatus: %s\nYou can continue the conversation in this chat.",
			t.ID, t.Status), nil)
		return
	}
	b.Store.SetPending(member, domain.PendingAction{Kind: domain.PendingTicketText})
	b.reply(ctx, member,
		"📝 Enter your report text:\nPlease describe the issue or question in detail.", nil)
}

func (b *Bot) onStatus(ctx context.Context, member domain.MemberID) {
	rep := b.Members.Status(member)
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 Your Status:\nName: %s\n", rep.DisplayName)
	if rep.Callsign != "" {
		fmt.Fprintf(&sb, "Callsign: %s\n", rep.Callsign)
	} else {
		sb.WriteString("Callsign: Not set\n")
	}
	if rep.Ready {
		sb.WriteString("Active: Yes\n")
	} else {
		sb.WriteString("Active: No\n")
	}
	if rep.ActiveTicket != nil {
		fmt.Fprintf(&sb, "Active ticket: %s (%s)\n", rep.ActiveTicket.ID, rep.ActiveTicket.Status)
	}
	fmt.Fprintf(&sb, "Active missions: %d\nCompleted missions: %d\n",
		len(rep.ActiveMissions), len(rep.FinishedMissions))
	if len(rep.ActiveMissions) > 0 {
		sb.WriteString("\nActive Missions:\n")
		for _, m := range rep.ActiveMissions {
			fmt.Fprintf(&sb, "- %s (ID: %s)\n", m.Name, m.ID)
		}
	}
	if len(rep.FinishedMissions) > 0 {
		sb.WriteString("\nCompleted Missions:\n")
		for _, m := range rep.FinishedMissions {
			fmt.Fprintf(&sb, "- %s (ID: %s)\n", m.Name, m.ID)
		}
	}
	// Finish buttons only make sense for commanders.
	var markup = finishButtons(rep.ActiveMissions)
	if !rep.Commander {
		markup = nil
	}
	b.reply(ctx, member, sb.String(), markup)
}

func (b *Bot) onHelp(ctx context.Context, member domain.MemberID) {
	var sb strings.Builder
	sb.WriteString(
		"📚 Command Reference:\n" +
			"For All Members:\n" +
			"• 'Ready for Action!' – Confirm availability for missions\n" +
			"• 'Report to Command' – Create a command report\n" +
			"• 'My Status' – View your status and active missions\n" +
			"• /help – This guide\n")
	if b.Store.IsCommander(member) {
		sb.WriteString(
			"For Command:\n" +
				"• 'Create Mission' – Create a new mission\n" +
				"• 'Operation Summary' – View mission and report statistics\n" +
				"• 'Manage Units' – Manage unit composition\n" +
				"• 'Active Tickets' – View and process reports\n" +
				"• 'Set Callsign' – Choose callsign\n")
	}
	b.reply(ctx, member, sb.String(), nil)
}

func (b *Bot) onCreateMission(ctx context.Context, member domain.MemberID) {
	scopes := b.Missions.AllowedScopes(member)
	if len(scopes) == 0 {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	b.reply(ctx, member,
		"⚡ Create New Mission\nSelect mission type:", scopeKeyboard(scopes))
}

func (b *Bot) onSummary(ctx context.Context, member domain.MemberID) {
	sum, err := b.Members.Summarize(member)
	if err != nil {
		b.reply(ctx, member, errText(err), nil)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb,
		"📊 Operations Summary\n"+
			"Missions:\n- Active: %d\n- Completed: %d\n- Pending: %d\n- Rejected: %d\n"+
			"Tickets:\n- Waiting: %d\n- In Progress: %d\n"+
			"Units:\n",
		sum.MissionCounts[domain.MissionActive],
		sum.MissionCounts[domain.MissionCompleted],
		sum.MissionCounts[domain.MissionPending],
		sum.MissionCounts[domain.MissionRejected],
		sum.OpenTickets, sum.InProgress)
	for _, u := range domain.AllUnits {
		fmt.Fprintf(&sb, "- %s: %d\n", capitalize(string(u)), sum.UnitSizes[u])
	}
	sb.WriteString("\nActive Missions:")
	listed := false
	for _, m := range sum.RecentMissions {
		fmt.Fprintf(&sb, "\n- %s (%s)", m.Name, m.Status)
		listed = true
	}
	if !listed {
		sb.WriteString("\nNo active missions")
	}
	b.reply(ctx, member, sb.String(), finishButtons(sum.RecentMissions))
}

func (b *Bot) onManageUnits(ctx context.Context, member domain.MemberID) {
	if !b.Store.IsCommander(member) {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	b.reply(ctx, member,
		"⚙️ Unit Management\nSelect unit to manage:",
		unitPickKeyboard(b.Store.UnitSizes()))
}

func (b *Bot) onSetCallsign(ctx context.Context, member domain.MemberID) {
	b.Store.SetPending(member, domain.PendingAction{Kind: domain.PendingCallsign})
	b.reply(ctx, member, fmt.Sprintf(
		"📝 Enter new callsign (max %d characters):\n"+
			"This will be used for identification in the system and visible to other members.",
		b.Members.MaxCallsignLen), nil)
}

func (b *Bot) onActiveTickets(ctx context.Context, member domain.MemberID) {
	if !b.Store.IsCommander(member) {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	open := b.Store.OpenTickets()
	if len(open) == 0 {
		b.reply(ctx, member, "ℹ️ No active tickets.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("📋 Active Tickets:\n")
	for _, t := range open {
		fmt.Fprintf(&sb,
			"ID: %s\nFrom: %s (ID: %d)\nStatus: %s\nCreated: %s\n%s\n",
			t.ID, b.Store.DisplayName(t.Owner), t.Owner, t.Status,
			t.CreatedAt.Format("02.01 15:04"), strings.Repeat("-", 20))
	}
	sb.WriteString("\nTo view a specific ticket, use: /ticket <id>")
	b.reply(ctx, member, sb.String(), nil)
}

func (b *Bot) onTicketLookup(ctx context.Context, member domain.MemberID, ticketID string) {
	if ticketID == "" {
		b.reply(ctx, member, "❌ Please specify the ticket ID", nil)
		return
	}
	t, err := b.Tickets.Ticket(ticketID)
	if err != nil {
		b.reply(ctx, member, errText(err), nil)
		return
	}
	if !b.Store.IsCommander(member) && member != t.Owner && member != t.AssignedTo {
		b.reply(ctx, member, msgNoPermission, nil)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb,
		"📋 Ticket Details %s\nFrom: %s (ID: %d)\nStatus: %s\nCreated: %s\n\nTicket History:\n",
		t.ID, b.Store.DisplayName(t.Owner), t.Owner, t.Status,
		t.CreatedAt.Format("02.01 15:04"))
	if len(t.Log) == 0 {
		sb.WriteString("No messages in this ticket.\n")
	}
	for _, e := range t.Log {
		if e.From == domain.EntryFromMember {
			fmt.Fprintf(&sb, "👤 Member: %s\n", e.Text)
		} else {
			fmt.Fprintf(&sb, "🛡️ %s: %s\n", b.Tickets.CallsignOf(e.Author), e.Text)
		}
	}
	var markup = ticketReplyKeyboard(t.ID)
	if !b.Store.IsCommander(member) || t.Status == domain.TicketClosed {
		markup = nil
	}
	b.reply(ctx, member, sb.String(), markup)
}

func (b *Bot) onFinishMission(ctx context.Context, member domain.MemberID, missionID string) {
	if missionID == "" {
		b.reply(ctx, member, "Please specify mission ID: /finish_mission <id>", nil)
		return
	}
	m, err := b.Missions.Finish(ctx, missionID, member)
	if err != nil {
		b.reply(ctx, member, errText(err), nil)
		return
	}
	b.reply(ctx, member, fmt.Sprintf("Mission %q completed!", m.Name), nil)
}

func (b *Bot) onClose(ctx context.Context, member domain.MemberID) {
	if _, err := b.Tickets.CloseCurrent(ctx, member); err != nil {
		b.reply(ctx, member, errText(err), nil)
	}
	// Closure notifications to both parties come from the service.
}

// handlePending consumes the member's next message according to the
// structured action that owns it. Validation failures re-prompt and keep
// the pending state; success clears it.
func (b *Bot) handlePending(ctx context.Context, member domain.MemberID, p domain.PendingAction, text string) {
	switch p.Kind {
	case domain.PendingCallsign:
		cs, err := b.Members.SetCallsign(member, text)
		if err != nil {
			b.reply(ctx, member, errText(err), nil)
			return
		}
		b.Store.ClearPending(member)
		b.reply(ctx, member, fmt.Sprintf(
			"✅ Callsign successfully updated!\nNew callsign: %s", cs), nil)

	case domain.PendingUnitMemberID:
		b.handleUnitMemberInput(ctx, member, p, text)

	case domain.PendingMissionName:
		name, err := b.Missions.ValidateName(text)
		if err != nil {
			b.reply(ctx, member, errText(err), nil)
			return
		}
		b.Store.SetPending(member, domain.PendingAction{
			Kind:  domain.PendingMissionContent,
			Scope: p.Scope,
			Name:  name,
		})
		b.reply(ctx, member, fmt.Sprintf(
			"⚡ Create New Mission\nName: %s\nEnter mission content:", name), nil)

	case domain.PendingMissionContent:
		b.Store.ClearPending(member)
		m, pending, err := b.Missions.Create(ctx, member, p.Scope, p.Name, text)
		if err != nil {
			b.reply(ctx, member, errText(err), nil)
			return
		}
		if pending {
			b.reply(ctx, member,
				"🕒 Mission sent for command approval.\nYou will be notified after review.", nil)
			return
		}
		b.reply(ctx, member, fmt.Sprintf(
			"✅ Mission %q launched!\nReach: %d units", m.Name, len(m.Scope.TargetUnits())), nil)

	case domain.PendingTicketText:
		t, err := b.Tickets.Create(ctx, member, text)
		if errors.Is(err, services.ErrActiveTicketExists) {
			b.Store.ClearPending(member)
			b.reply(ctx, member, fmt.Sprintf(
				"ℹ️ You already have an active ticket!\nID: %s\nStatus: %s", t.ID, t.Status), nil)
			return
		}
		if err != nil {
			b.reply(ctx, member, errText(err), nil)
			return
		}
		b.Store.ClearPending(member)
		b.reply(ctx, member, fmt.Sprintf(
			"✅ Your report has been registered!\nID: %s\n"+
				"Command will contact you shortly.\n"+
				"You can continue writing in this chat to add to your report.", t.ID), nil)

	case domain.PendingTicketResponse:
		_, err := b.Tickets.Respond(ctx, p.TicketID, member, text)
		if errors.Is(err, services.ErrEmptyText) {
			b.reply(ctx, member, errText(err), nil)
			return
		}
		b.Store.ClearPending(member)
		if err != nil {
			b.reply(ctx, member, errText(err), nil)
			return
		}
		b.reply(ctx, member, "✅ Response has been sent.", nil)

	default:
		b.log.Warn().Str("kind", string(p.Kind)).Msg("unknown pending action kind")
		b.Store.ClearPending(member)
	}
}

func (b *Bot) handleUnitMemberInput(ctx context.Context, member domain.MemberID, p domain.PendingAction, text string) {
	var (
		target domain.MemberID
		err    error
	)
	if p.Op == domain.UnitOpAdd {
		target, err = b.Members.AddToUnit(member, p.Unit, text)
	} else {
		target, err = b.Members.RemoveFromUnit(member, p.Unit, text)
	}
	if errors.Is(err, services.ErrBadMemberID) {
		// Keep the pending state so the commander can retype the id.
		b.reply(ctx, member, errText(err), nil)
		return
	}
	b.Store.ClearPending(member)
	if err != nil {
		b.reply(ctx, member, errText(err), nil)
		return
	}
	if p.Op == domain.UnitOpAdd {
		b.reply(ctx, member, fmt.Sprintf(
			"✅ Member %d added to %s unit.", target, capitalize(string(p.Unit))), nil)
		return
	}
	b.reply(ctx, member, fmt.Sprintf(
		"✅ Member %d removed from %s unit.", target, capitalize(string(p.Unit))), nil)
}
