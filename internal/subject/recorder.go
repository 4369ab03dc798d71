package subject

import (
	"context"
	"sync"
)

// Recorder captures subject updates and notes for inspection in tests
type Recorder struct {
	mu      sync.Mutex
	updates []*Update
	notes   []*Note
	Fail    error
}

var _ Updater = (*Recorder)(nil)

// NewRecorder creates an empty update recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Update captures the change, failing with the configured error if set
func (r *Recorder) Update(_ context.Context, up *Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.updates = append(r.updates, up)
	return nil
}

// AppendNote captures the note, failing with the configured error if set
func (r *Recorder) AppendNote(_ context.Context, n *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.notes = append(r.notes, n)
	return nil
}

// Updates returns a snapshot of the captured changes
func (r *Recorder) Updates() []*Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*Update, len(r.updates))
	copy(res, r.updates)
	return res
}

// Notes returns a snapshot of the captured notes
func (r *Recorder) Notes() []*Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*Note, len(r.notes))
	copy(res, r.notes)
	return res
}
