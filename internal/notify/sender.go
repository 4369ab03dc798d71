// Package notify delivers reminder and lifecycle notices to interested
// parties. Delivery is a non-critical side effect: failures degrade the
// triggering transition but never block it
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/log"
)

type (
	// Notice is a single notification to deliver
	Notice struct {
		Target     time.Time         `json:"target,omitempty"`
		InstanceID api.InstanceID    `json:"instance_id"`
		SubjectID  api.SubjectID     `json:"subject_id"`
		Kind       string            `json:"kind"`
		ItemID     api.ItemID        `json:"item_id,omitempty"`
		Label      api.ReminderLabel `json:"label,omitempty"`
		Title      string            `json:"title,omitempty"`
		Message    string            `json:"message"`
	}

	// Sender delivers notices
	Sender interface {
		Send(context.Context, *Notice) error
	}

	// WebhookSender posts notices as JSON to a configured endpoint
	WebhookSender struct {
		httpClient *http.Client
		endpoint   string
	}

	// LogSender writes notices to the structured log. It is the default
	// sender when no webhook endpoint is configured
	LogSender struct{}
)

// Notice kinds
const (
	NoticeReminder  = "reminder"
	NoticeOverdue   = "overdue"
	NoticePaused    = "paused"
	NoticeResumed   = "resumed"
	NoticeCancelled = "cancelled"
	NoticeCompleted = "completed"
	NoticeFailed    = "failed"
)

var (
	ErrWebhookError    = errors.New("notice webhook returned HTTP error")
	ErrWebhookRejected = errors.New("notice webhook rejected delivery")
)

var (
	_ Sender = (*WebhookSender)(nil)
	_ Sender = (*LogSender)(nil)
)

// NewWebhookSender creates a sender that posts to the given endpoint
func NewWebhookSender(endpoint string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Send posts the notice. Network and server-side failures are classified as
// transient so the activity executor will retry them
func (s *WebhookSender) Send(ctx context.Context, n *Notice) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(body),
	)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", api.ErrTransientInfra, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", api.ErrTransientInfra, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w: HTTP %d",
			api.ErrTransientInfra, ErrWebhookError, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrWebhookError, resp.StatusCode)
	}

	if ok := gjson.GetBytes(respBody, "ok"); ok.Exists() && !ok.Bool() {
		reason := gjson.GetBytes(respBody, "error").String()
		return fmt.Errorf("%w: %s", ErrWebhookRejected, reason)
	}
	return nil
}

// Send writes the notice to the log
func (*LogSender) Send(_ context.Context, n *Notice) error {
	slog.Info("Notice",
		log.InstanceID(n.InstanceID),
		log.SubjectID(n.SubjectID),
		slog.String("kind", n.Kind),
		slog.String("label", string(n.Label)),
		slog.String("message", n.Message))
	return nil
}
