package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/crypto"
	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Webhook delivery headers and event name.
const (
	HeaderEvent     = "X-ShadowBench-Event"
	HeaderSignature = "X-ShadowBench-Signature"
	WebhookEvent    = "arb.detected"
)

// maxConcurrentDeliveries bounds in-flight webhook POSTs per dispatch.
const maxConcurrentDeliveries = 8

// WebhookLink is one side of an opportunity in a webhook payload.
type WebhookLink struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	DeepLink string  `json:"deep_link"`
}

// WebhookOpportunity is the wire form of an opportunity in a webhook payload.
type WebhookOpportunity struct {
	ID         string            `json:"id"`
	Market     string            `json:"market"`
	SpreadPct  float64           `json:"spread_pct"`
	PlatformA  WebhookLink       `json:"platform_a"`
	PlatformB  WebhookLink       `json:"platform_b"`
	Confidence domain.Confidence `json:"confidence"`
	Category   string            `json:"category"`
}

// WebhookPayload is the JSON body POSTed to subscribers.
type WebhookPayload struct {
	Event         string               `json:"event"`
	Timestamp     time.Time            `json:"timestamp"`
	Opportunities []WebhookOpportunity `json:"opportunities"`
}

// Matches reports whether opp passes sub's filters: the spread floor, then
// any category and platform substrings (case-insensitive).
func Matches(sub domain.WebhookSubscription, opp domain.Opportunity) bool {
	if opp.SpreadPercent < sub.MinSpreadPct {
		return false
	}
	if len(sub.Categories) > 0 && !anyContains(sub.Categories, opp.Category) {
		return false
	}
	if len(sub.Platforms) > 0 && !anyContains(sub.Platforms, opp.PlatformA) && !anyContains(sub.Platforms, opp.PlatformB) {
		return false
	}
	return true
}

func anyContains(needles []string, haystack string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// BuildPayload renders opps in webhook wire form at ts.
func BuildPayload(opps []domain.Opportunity, ts time.Time) WebhookPayload {
	out := WebhookPayload{Event: WebhookEvent, Timestamp: ts.UTC(), Opportunities: make([]WebhookOpportunity, 0, len(opps))}
	for _, o := range opps {
		out.Opportunities = append(out.Opportunities, WebhookOpportunity{
			ID:         o.ID,
			Market:     o.Event,
			SpreadPct:  math.Round(o.SpreadPercent*100) / 100,
			PlatformA:  WebhookLink{Name: o.PlatformA, Price: o.PlatformAPrice, DeepLink: o.PlatformALink},
			PlatformB:  WebhookLink{Name: o.PlatformB, Price: o.PlatformBPrice, DeepLink: o.PlatformBLink},
			Confidence: o.Confidence,
			Category:   o.Category,
		})
	}
	return out
}

// WebhookDispatcher delivers opportunities to subscriber endpoints.
type WebhookDispatcher struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewWebhookDispatcher creates a dispatcher whose deliveries time out after
// timeout.
func NewWebhookDispatcher(timeout time.Duration, logger *slog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "webhooks")),
		now:    time.Now,
	}
}

// Dispatch sends each subscriber the opportunities matching its filters,
// concurrently. Delivery failures are logged and never returned; the result
// is the number of successful deliveries.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, subs []domain.WebhookSubscription, opps []domain.Opportunity) int {
	if len(subs) == 0 || len(opps) == 0 {
		return 0
	}

	ts := d.now()
	var g errgroup.Group
	g.SetLimit(maxConcurrentDeliveries)
	delivered := make([]bool, len(subs))

	for i, sub := range subs {
		var matched []domain.Opportunity
		for _, o := range opps {
			if Matches(sub, o) {
				matched = append(matched, o)
			}
		}
		if len(matched) == 0 {
			continue
		}

		g.Go(func() error {
			if err := d.deliver(ctx, sub, BuildPayload(matched, ts)); err != nil {
				d.logger.WarnContext(ctx, "webhook delivery failed",
					slog.String("webhook_id", sub.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			delivered[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range delivered {
		if ok {
			n++
		}
	}
	return n
}

func (d *WebhookDispatcher) deliver(ctx context.Context, sub domain.WebhookSubscription, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	headers := map[string]string{HeaderEvent: WebhookEvent}
	if sub.Secret != "" {
		headers[HeaderSignature] = crypto.SignHex(sub.Secret, body)
	}
	return postBody(ctx, d.client, sub.URL, body, headers)
}

// postJSON marshals payload and POSTs it to url.
func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return postBody(ctx, client, url, body, headers)
}

// postBody POSTs a JSON body and treats any non-2xx status as an error.
func postBody(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
