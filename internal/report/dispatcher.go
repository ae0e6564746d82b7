package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
)

// Dispatcher posts final reports to the collector with a bounded number of
// attempts. Delivery is best-effort: failures are logged and abandoned,
// never durably queued.
type Dispatcher struct {
	url      string
	client   *http.Client
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

func NewDispatcher(url string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: defaultAttempts,
		delay:    defaultDelay,
		logger:   logger,
	}
}

// Deliver attempts the POST up to the attempt budget with a fixed delay
// between tries. Returns nil on the first 2xx; otherwise the last error
// after exhausting all attempts.
func (d *Dispatcher) Deliver(ctx context.Context, rep FinalReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		lastErr = d.post(ctx, body)
		if lastErr == nil {
			d.logger.Info("report delivered",
				"session_id", rep.SessionID,
				"attempt", attempt,
				"scam_detected", rep.ScamDetected,
			)
			return nil
		}

		d.logger.Warn("report delivery attempt failed",
			"session_id", rep.SessionID,
			"attempt", attempt,
			"error", lastErr,
		)

		if attempt < d.attempts {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				return fmt.Errorf("delivery cancelled: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("all %d delivery attempts failed: %w", d.attempts, lastErr)
}

func (d *Dispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("collector post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	return nil
}
