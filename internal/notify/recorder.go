package notify

import (
	"context"
	"sync"
)

// Recorder captures sent notices for inspection in tests
type Recorder struct {
	mu      sync.Mutex
	notices []*Notice
	Fail    error
}

var _ Sender = (*Recorder)(nil)

// NewRecorder creates an empty notice recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send captures the notice, failing with the configured error if set
func (r *Recorder) Send(_ context.Context, n *Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.notices = append(r.notices, n)
	return nil
}

// Notices returns a snapshot of the captured notices
func (r *Recorder) Notices() []*Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*Notice, len(r.notices))
	copy(res, r.notices)
	return res
}
