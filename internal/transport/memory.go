package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cyberguard/squadbot/internal/domain"
)

// Sent is one delivery recorded by the Recorder.
type Sent struct {
	Recipient domain.MemberID
	Text      string
	Markup    *Markup
	Ref       domain.DeliveryRef
}

// Edit is one markup edit recorded by the Recorder.
type Edit struct {
	Ref    domain.DeliveryRef
	Markup *Markup
}

// Recorder is an in-memory Transport used by tests and local development.
// It records every send and edit, and can be told to treat specific
// recipients as permanently unreachable.
type Recorder struct {
	mu          sync.Mutex
	sent        []Sent
	edits       []Edit
	unreachable map[domain.MemberID]struct{}
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{unreachable: map[domain.MemberID]struct{}{}}
}

// BlockRecipient makes future sends to the member fail with ErrUnreachable.
func (r *Recorder) BlockRecipient(id domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreachable[id] = struct{}{}
}

// SendMessage implements Transport.
func (r *Recorder) SendMessage(_ context.Context, recipient domain.MemberID, text string, markup *Markup) (domain.DeliveryRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, blocked := r.unreachable[recipient]; blocked {
		return domain.DeliveryRef{}, ErrUnreachable
	}
	ref := domain.DeliveryRef{ChatID: recipient, MessageID: uuid.NewString()}
	r.sent = append(r.sent, Sent{Recipient: recipient, Text: text, Markup: markup, Ref: ref})
	return ref, nil
}

// EditMessageMarkup implements Transport.
func (r *Recorder) EditMessageMarkup(_ context.Context, ref domain.DeliveryRef, markup *Markup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Edit{Ref: ref, Markup: markup})
	return nil
}

// Sent returns a copy of everything delivered so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentTo filters deliveries by recipient.
func (r *Recorder) SentTo(id domain.MemberID) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.Recipient == id {
			out = append(out, s)
		}
	}
	return out
}

// Edits returns a copy of every markup edit so far.
func (r *Recorder) Edits() []Edit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edit(nil), r.edits...)
}

// Reset clears the recorded traffic but keeps the blocked set.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.edits = nil
}
