package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cyberguard/squadbot/internal/domain"
)

// HTTPGateway talks to a chat gateway over HTTP: POST /v1/messages to send
// and POST /v1/messages/edit-markup to update buttons. A 403 from the
// gateway means the recipient has blocked delivery and maps to
// ErrUnreachable; any other non-2xx status is a transient error.
type HTTPGateway struct {
	BaseURL string
	Token   string
	Client  *http.Client

	log zerolog.Logger
}

// NewHTTPGateway builds a gateway client with the given per-send timeout.
func NewHTTPGateway(baseURL, token string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "gateway-client").Logger(),
	}
}

type sendRequest struct {
	Recipient int64   `json:"recipient"`
	Text      string  `json:"text"`
	Markup    *Markup `json:"markup,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

type editRequest struct {
	ChatID    int64   `json:"chat_id"`
	MessageID string  `json:"message_id"`
	Markup    *Markup `json:"markup"`
}

// SendMessage implements Transport.
func (g *HTTPGateway) SendMessage(ctx context.Context, recipient domain.MemberID, text string, markup *Markup) (domain.DeliveryRef, error) {
	var resp sendResponse
	err := g.post(ctx, "/v1/messages", sendRequest{
		Recipient: int64(recipient),
		Text:      text,
		Markup:    markup,
	}, &resp)
	if err != nil {
		return domain.DeliveryRef{}, err
	}
	return domain.DeliveryRef{ChatID: recipient, MessageID: resp.MessageID}, nil
}

// EditMessageMarkup implements Transport.
func (g *HTTPGateway) EditMessageMarkup(ctx context.Context, ref domain.DeliveryRef, markup *Markup) error {
	return g.post(ctx, "/v1/messages/edit-markup", editRequest{
		ChatID:    int64(ref.ChatID),
		MessageID: ref.MessageID,
		Markup:    markup,
	}, nil)
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return ErrUnreachable
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return fmt.Errorf("gateway %s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway %s: decode response: %w", path, err)
	}
	return nil
}
