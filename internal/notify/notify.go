// Package notify dispatches post-checkout side effects to downstream
// services: proforma invoice generation and the order confirmation email.
// Dispatch is fire-and-forget; the checkout response never waits on it and
// failures are logged only.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Config holds the downstream endpoint URLs. An empty URL disables that
// dispatch.
type Config struct {
	InvoiceURL string
	EmailURL   string
	Timeout    time.Duration
}

// Notifier posts order events to the configured downstream endpoints.
type Notifier struct {
	cfg    Config
	client *http.Client
}

// New creates a Notifier. A zero Timeout defaults to 10 seconds.
func New(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// OrderPlaced dispatches invoice generation and the order-placed email for
// the given order. It returns immediately; the calls run detached from the
// request context so a client disconnect cannot cancel them.
func (n *Notifier) OrderPlaced(ctx context.Context, orderID string) {
	lg := zctx.From(ctx)
	detached := context.WithoutCancel(ctx)

	if n.cfg.InvoiceURL != "" {
		go n.post(detached, lg, n.cfg.InvoiceURL, map[string]string{
			"orderId":     orderID,
			"invoiceType": "proforma",
		})
	}
	if n.cfg.EmailURL != "" {
		go n.post(detached, lg, n.cfg.EmailURL, map[string]string{
			"orderId":   orderID,
			"emailType": "order_placed",
		})
	}
}

func (n *Notifier) post(ctx context.Context, lg *zap.Logger, url string, payload map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		lg.Error("notify: marshal payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		lg.Error("notify: build request", zap.String("url", url), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		lg.Warn("notify: dispatch failed", zap.String("url", url), zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		lg.Warn("notify: downstream rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
	}
}
