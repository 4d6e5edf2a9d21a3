package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/store"
)

// Recorder journals detection sessions and their button events. A Recorder
// without a store does nothing.
type Recorder struct {
	store *store.Store

	mu        sync.Mutex
	sessionID string
}

// NewRecorder creates a Recorder writing to s, which may be nil.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Begin opens a new session.
func (r *Recorder) Begin(mode string, at time.Time) error {
	if r.store == nil {
		return nil
	}

	sess := &store.Session{MappingMode: mode, StartedAt: at}
	if err := r.store.Sessions().Create(sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	r.sessionID = sess.ID
	r.mu.Unlock()
	return nil
}

// Record appends the button event of step to the open session. Steps
// without a button event are ignored.
func (r *Recorder) Record(step control.Step) error {
	id := r.SessionID()
	if r.store == nil || id == "" {
		return nil
	}

	var kind store.EventKind
	switch {
	case step.Button == control.ButtonDown:
		kind = store.EventDown
	case step.Button == control.ButtonUp && step.Released:
		kind = store.EventRelease
	case step.Button == control.ButtonUp:
		kind = store.EventUp
	default:
		return nil
	}

	return r.store.Events().Append(&store.Event{
		SessionID: id,
		Kind:      kind,
		X:         step.Position.X,
		Y:         step.Position.Y,
		Distance:  step.Distance,
		At:        step.Timestamp,
	})
}

// End closes the open session with its frame counters.
func (r *Recorder) End(at time.Time, frames, detections int64) error {
	r.mu.Lock()
	id := r.sessionID
	r.sessionID = ""
	r.mu.Unlock()

	if r.store == nil || id == "" {
		return nil
	}
	if err := r.store.Sessions().Finish(id, at, frames, detections); err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	return nil
}

// SessionID returns the open session's ID, or "" when none is open.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}
