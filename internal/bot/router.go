// Package bot routes inbound chat updates to the coordination services.
//
// Routing for plain messages runs three matchers in strict priority order:
// a structured pending action owned by the member, the silent ticket-dialog
// relay, and finally the fixed command table. Button presses carry a
// callback payload and are dispatched by verb. Every mutating handler ends
// with a snapshot save.
package bot

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/services"
	"github.com/cyberguard/squadbot/internal/store"
	"github.com/cyberguard/squadbot/internal/transport"
)

var updatesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "squadbot_updates_total",
		Help: "Inbound updates processed, by kind.",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(updatesTotal)
}

// Update is one inbound event from the chat gateway. Exactly one of Text
// and Callback is meaningful: a plain message carries Text, a button press
// carries the Callback payload plus the handle of the message the button
// sat on.
type Update struct {
	Member   domain.MemberID
	Username string
	Text     string
	Callback string
	// Ref identifies the message whose button was pressed; used to strip
	// or swap its markup.
	Ref domain.DeliveryRef
}

// Saver persists the current state; the router calls it after every
// mutating handler.
type Saver interface {
	Save() error
}

// Bot wires the routing layer to the services.
type Bot struct {
	Store    *store.Store
	Members  *services.MemberService
	Missions *services.MissionService
	Tickets  *services.TicketService
	Dispatch *services.Dispatcher
	Persist  Saver

	log zerolog.Logger
}

// New constructs the router.
func New(st *store.Store, members *services.MemberService, missions *services.MissionService, tickets *services.TicketService, d *services.Dispatcher, persist Saver) *Bot {
	return &Bot{
		Store:    st,
		Members:  members,
		Missions: missions,
		Tickets:  tickets,
		Dispatch: d,
		Persist:  persist,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// HandleUpdate dispatches one inbound update.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) {
	b.Members.Seen(u.Member, u.Username)
	if u.Callback != "" {
		updatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, u)
	} else {
		updatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(ctx, u)
	}
	b.save()
}

func (b *Bot) handleMessage(ctx context.Context, u Update) {
	text := strings.TrimSpace(u.Text)

	// Priority 1: a structured pending action owns the member's next
	// message regardless of its content.
	if p, ok := b.Store.Pending(u.Member); ok {
		b.handlePending(ctx, u.Member, p, u.Text)
		return
	}

	// Priority 2: the ticket dialog relay, unless the member is closing
	// the conversation.
	if !strings.HasPrefix(text, "/close") {
		if t, ok := b.Store.ActiveTicketOf(u.Member); ok && t.Status == domain.TicketInProgress {
			b.relayFromOwner(ctx, u.Member, u.Text)
			return
		}
		if _, ok := b.Store.TicketAssignedTo(u.Member); ok {
			if _, err := b.Tickets.RelayFromCommander(ctx, u.Member, u.Text); err != nil {
				b.reply(ctx, u.Member, errText(err), nil)
			}
			return
		}
	}

	// Priority 3: the fixed command table.
	b.handleCommand(ctx, u.Member, text)
}

func (b *Bot) relayFromOwner(ctx context.Context, owner domain.MemberID, text string) {
	if _, err := b.Tickets.RelayFromOwner(ctx, owner, text); err != nil {
		// Unassigned means the ticket is still waiting in the queue; tell
		// the owner instead of dropping their message silently.
		b.reply(ctx, owner, errText(err), nil)
	}
}

// reply sends a direct response to the member who triggered the handler.
// Delivery failures are handled by the dispatcher.
func (b *Bot) reply(ctx context.Context, member domain.MemberID, text string, markup *transport.Markup) {
	b.Dispatch.Send(ctx, member, text, markup) //nolint:errcheck
}

func (b *Bot) save() {
	if err := b.Persist.Save(); err != nil {
		b.log.Error().Err(err).Msg("snapshot save failed")
	}
}
