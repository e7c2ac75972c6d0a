// Package transport abstracts the chat channel the squad talks through.
// The coordination core only ever needs two primitives: send a message
// (optionally with inline buttons) and edit the buttons of a previously sent
// message. Implementations translate these to a concrete gateway.
package transport

import (
	"context"
	"errors"

	"github.com/cyberguard/squadbot/internal/domain"
)

// ErrUnreachable is the distinguished permanent delivery failure: the
// recipient has blocked the channel. It triggers full deregistration of the
// member; every other send error is transient and merely logged.
var ErrUnreachable = errors.New("recipient unreachable")

// Button is one inline action attached to a message.
type Button struct {
	Text string `json:"text"`
	// Data is the callback payload delivered back when pressed, e.g.
	// "take_ticket:ticket_42_1700000000".
	Data string `json:"data"`
}

// Markup is an inline keyboard: rows of buttons.
type Markup struct {
	Rows [][]Button `json:"rows"`
}

// Row is a convenience constructor for a single-row keyboard.
func Row(buttons ...Button) *Markup {
	return &Markup{Rows: [][]Button{buttons}}
}

// Column builds a one-button-per-row keyboard.
func Column(buttons ...Button) *Markup {
	m := &Markup{}
	for _, b := range buttons {
		m.Rows = append(m.Rows, []Button{b})
	}
	return m
}

// Transport delivers messages to members.
type Transport interface {
	// SendMessage delivers text (plus optional inline markup) to the
	// recipient and returns a handle usable with EditMessageMarkup.
	// Returns ErrUnreachable when the recipient permanently blocked
	// delivery.
	SendMessage(ctx context.Context, recipient domain.MemberID, text string, markup *Markup) (domain.DeliveryRef, error)

	// EditMessageMarkup replaces (or with nil markup, strips) the inline
	// buttons of a previously sent message.
	EditMessageMarkup(ctx context.Context, ref domain.DeliveryRef, markup *Markup) error
}
