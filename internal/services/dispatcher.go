package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/store"
	"github.com/cyberguard/squadbot/internal/transport"
)

// Dispatcher performs best-effort delivery to one or many recipients.
// Sends are throttled by a token bucket so a large fan-out cannot trip the
// gateway's flood limits. A permanently unreachable recipient (blocked
// delivery) is fully deregistered from the store; any other error is logged
// and that recipient is skipped. Partial failure never aborts delivery to
// the remaining recipients.
type Dispatcher struct {
	TX      transport.Transport
	Store   *store.Store
	Limiter *rate.Limiter

	log zerolog.Logger
}

// NewDispatcher wires a dispatcher with the given sends-per-second budget.
func NewDispatcher(tx transport.Transport, st *store.Store, rps float64, burst int) *Dispatcher {
	return &Dispatcher{
		TX:      tx,
		Store:   st,
		Limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// FanoutResult reports the per-recipient outcome of a fan-out.
type FanoutResult struct {
	// Delivered maps each reached recipient to the delivery handle of the
	// sent message.
	Delivered map[domain.MemberID]domain.DeliveryRef
	// Unreachable lists recipients that permanently blocked delivery and
	// were deregistered.
	Unreachable []domain.MemberID
	// Failed lists recipients skipped over a transient error.
	Failed []domain.MemberID
}

// Send delivers to a single recipient, applying the same unreachable
// handling as a fan-out. The returned handle is zero on failure.
func (d *Dispatcher) Send(ctx context.Context, recipient domain.MemberID, text string, markup *transport.Markup) (domain.DeliveryRef, error) {
	if err := d.Limiter.Wait(ctx); err != nil {
		return domain.DeliveryRef{}, err
	}
	ref, err := d.TX.SendMessage(ctx, recipient, text, markup)
	switch {
	case err == nil:
		sendsTotal.WithLabelValues("delivered").Inc()
		return ref, nil
	case errors.Is(err, transport.ErrUnreachable):
		sendsTotal.WithLabelValues("unreachable").Inc()
		deregistrationsTotal.Inc()
		d.log.Warn().Int64("member_id", int64(recipient)).Msg("recipient blocked delivery, deregistering")
		d.Store.Deregister(recipient)
		return domain.DeliveryRef{}, err
	default:
		sendsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).Int64("member_id", int64(recipient)).Msg("send failed")
		return domain.DeliveryRef{}, err
	}
}

// Fanout delivers the same payload to every recipient independently.
func (d *Dispatcher) Fanout(ctx context.Context, recipients []domain.MemberID, text string, markup *transport.Markup) FanoutResult {
	res := FanoutResult{Delivered: map[domain.MemberID]domain.DeliveryRef{}}
	for _, id := range recipients {
		ref, err := d.Send(ctx, id, text, markup)
		switch {
		case err == nil:
			res.Delivered[id] = ref
		case errors.Is(err, transport.ErrUnreachable):
			res.Unreachable = append(res.Unreachable, id)
		default:
			res.Failed = append(res.Failed, id)
		}
	}
	return res
}

// SwapPrompts replaces the inline markup on every tracked prompt for the
// entity except the listed recipients. Edit failures are logged only; the
// routing table is a weak cache and staleness is harmless.
func (d *Dispatcher) SwapPrompts(ctx context.Context, entityID string, markup *transport.Markup, except ...domain.MemberID) {
	skip := map[domain.MemberID]struct{}{}
	for _, id := range except {
		skip[id] = struct{}{}
	}
	for cmdr, ref := range d.Store.PromptRefs(entityID) {
		if _, ok := skip[cmdr]; ok {
			continue
		}
		if err := d.TX.EditMessageMarkup(ctx, ref, markup); err != nil {
			d.log.Error().Err(err).Str("entity_id", entityID).Int64("member_id", int64(cmdr)).Msg("prompt edit failed")
		}
	}
}

// RetirePrompts strips the buttons from every tracked prompt for the entity
// and discards its routing entries. Used when the entity's lifecycle ends.
func (d *Dispatcher) RetirePrompts(ctx context.Context, entityID string) {
	d.SwapPrompts(ctx, entityID, nil)
	d.Store.DropPrompts(entityID)
}
