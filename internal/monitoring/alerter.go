package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/store"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertCriticalDetection AlertType = "critical_detection"
	AlertReviewBacklog     AlertType = "review_backlog"
	AlertNoDetections      AlertType = "no_detections"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Config holds alerting thresholds and the webhook destination.
type Config struct {
	// WebhookURL receives alert payloads as JSON POSTs. Empty disables
	// delivery.
	WebhookURL string

	// ReviewBacklogThreshold triggers an alert when the human review queue
	// exceeds it. Zero disables the check.
	ReviewBacklogThreshold int

	// SilenceAfterHours alerts when a window of this many hours produced
	// zero detections. Zero disables the check.
	SilenceAfterHours int

	// LookbackHours is the metrics window. Default 24.
	LookbackHours int

	// CheckIntervalSecs is the background check cadence. Default 300.
	CheckIntervalSecs int
}

// Alerter evaluates snapshots against thresholds and dispatches webhook
// notifications for critical detections.
type Alerter struct {
	cfg    Config
	store  store.Store
	client *http.Client
}

// NewAlerter creates an Alerter over the detection store.
func NewAlerter(cfg Config, st store.Store) *Alerter {
	return &Alerter{
		cfg:    cfg,
		store:  st,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.ReviewBacklogThreshold > 0 && snap.ReviewQueueDepth > a.cfg.ReviewBacklogThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertReviewBacklog,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Human review queue depth %d exceeds threshold %d",
				snap.ReviewQueueDepth, a.cfg.ReviewBacklogThreshold,
			),
			Details: map[string]any{
				"depth":     snap.ReviewQueueDepth,
				"threshold": a.cfg.ReviewBacklogThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.SilenceAfterHours > 0 && snap.LookbackHours >= a.cfg.SilenceAfterHours && snap.Total == 0 {
		alerts = append(alerts, Alert{
			Type:     AlertNoDetections,
			Severity: "medium",
			Message: fmt.Sprintf(
				"No detections stored in the last %dh; scanners may be blocked",
				snap.LookbackHours,
			),
			Details:   map[string]any{"lookback_hours": snap.LookbackHours},
			Timestamp: now,
		})
	}

	return alerts
}

// DispatchCritical fetches unalerted CRITICAL detections since the cutoff,
// posts one alert per detection, and marks each delivered row so it is never
// alerted twice. Returns the number delivered.
func (a *Alerter) DispatchCritical(ctx context.Context, since time.Time, limit int) (int, error) {
	if a.cfg.WebhookURL == "" {
		return 0, nil
	}

	detections, err := a.store.RecentCritical(ctx, since, limit)
	if err != nil {
		return 0, eris.Wrap(err, "monitoring: recent critical")
	}

	sent := 0
	for _, d := range detections {
		alert := criticalAlert(d)
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("failed to send critical alert",
				zap.String("evidence_id", d.EvidenceID),
				zap.Error(err),
			)
			continue
		}
		if err := a.store.MarkAlertSent(ctx, d.EvidenceID); err != nil {
			zap.L().Error("alert delivered but not marked, may repeat",
				zap.String("evidence_id", d.EvidenceID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func criticalAlert(d model.Detection) Alert {
	return Alert{
		Type:     AlertCriticalDetection,
		Severity: "high",
		Message: fmt.Sprintf(
			"CRITICAL %s detection on %s (score %d): %s",
			d.ThreatCategory, d.Platform, d.ThreatScore, d.ListingTitle,
		),
		Details: map[string]any{
			"evidence_id":  d.EvidenceID,
			"platform":     d.Platform,
			"threat_score": d.ThreatScore,
			"category":     string(d.ThreatCategory),
			"listing_url":  d.ListingURL,
			"search_term":  d.SearchTerm,
		},
		Timestamp: d.Timestamp,
	}
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
