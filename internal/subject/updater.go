// Package subject propagates workflow progress to the external record an
// instance tracks, such as a case management row or a client profile.
// Updates are non-critical side effects
package subject

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/docketry/docket/pkg/api"
)

type (
	// Update describes a change to push to the subject record
	Update struct {
		SubjectID  api.SubjectID  `json:"subject_id"`
		InstanceID api.InstanceID `json:"instance_id"`
		Stage      api.StageID    `json:"stage,omitempty"`
		RunState   api.RunState   `json:"run_state"`
	}

	// Note is free-form text appended to the subject record, used when an
	// operator action deserves a durable explanation on the matter itself
	Note struct {
		SubjectID  api.SubjectID  `json:"subject_id"`
		InstanceID api.InstanceID `json:"instance_id"`
		Actor      api.ActorID    `json:"actor,omitempty"`
		Text       string         `json:"text"`
	}

	// Updater pushes updates and notes to the subject system of record
	Updater interface {
		Update(context.Context, *Update) error
		AppendNote(context.Context, *Note) error
	}

	// HTTPUpdater posts updates as JSON to a configured endpoint
	HTTPUpdater struct {
		httpClient *http.Client
		endpoint   string
	}

	// NullUpdater discards updates. It is the default when no subject
	// endpoint is configured
	NullUpdater struct{}
)

var (
	ErrSubjectError    = errors.New("subject endpoint returned HTTP error")
	ErrSubjectRejected = errors.New("subject endpoint rejected update")
)

var (
	_ Updater = (*HTTPUpdater)(nil)
	_ Updater = (*NullUpdater)(nil)
)

// NewHTTPUpdater creates an updater that posts to the given endpoint
func NewHTTPUpdater(endpoint string, timeout time.Duration) *HTTPUpdater {
	return &HTTPUpdater{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Update posts the change. Network and server-side failures are classified
// as transient so the activity executor will retry them
func (u *HTTPUpdater) Update(ctx context.Context, up *Update) error {
	return u.post(ctx, u.endpoint, up)
}

// AppendNote posts the note to the endpoint's note resource, with the same
// failure classification as Update
func (u *HTTPUpdater) AppendNote(ctx context.Context, n *Note) error {
	return u.post(ctx, u.endpoint+"/note", n)
}

func (u *HTTPUpdater) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewBuffer(body),
	)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(httpReq)
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
			api.ErrTransientInfra, ErrSubjectError, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrSubjectError, resp.StatusCode)
	}

	if ok := gjson.GetBytes(respBody, "ok"); ok.Exists() && !ok.Bool() {
		reason := gjson.GetBytes(respBody, "error").String()
		return fmt.Errorf("%w: %s", ErrSubjectRejected, reason)
	}
	return nil
}

// Update discards the change
func (*NullUpdater) Update(context.Context, *Update) error {
	return nil
}

// AppendNote discards the note
func (*NullUpdater) AppendNote(context.Context, *Note) error {
	return nil
}
