package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/retry"
)

// DefaultSendTimeout is the default timeout for one relay request.
const DefaultSendTimeout = 30 * time.Second

// Ensure Notifier implements wikidigest.Notifier at compile time.
var _ wikidigest.Notifier = (*Notifier)(nil)

// Notifier posts messages as JSON to an email relay endpoint.
// Server errors and timeouts are retried; any other failure is not.
type Notifier struct {
	url    string
	client *http.Client
	policy retry.Policy
}

// NewNotifier creates a new Notifier posting to relayURL.
func NewNotifier(relayURL string, logger *slog.Logger, opts ...Option) *Notifier {
	o := options{timeout: DefaultSendTimeout, delays: retry.DefaultDelays()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Notifier{
		url:    relayURL,
		client: &http.Client{Timeout: o.timeout},
		policy: retry.Policy{Delays: o.delays, Logger: logger},
	}
}

// Send delivers msg. A 200 or 202 response is success.
func (n *Notifier) Send(ctx context.Context, msg *wikidigest.Message) error {
	if msg.To == "" {
		return wikidigest.Errorf(wikidigest.EINVALID, "recipient required")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = retry.Do(ctx, n.policy, "send "+msg.To, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.post(ctx, payload)
	})
	return err
}

func (n *Notifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "relay request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "relay returned %d: %s", resp.StatusCode, body)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return wikidigest.Errorf(wikidigest.EINVALID, "relay returned %d: %s", resp.StatusCode, body)
	}
}
