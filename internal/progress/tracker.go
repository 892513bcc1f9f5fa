package progress

import (
	"context"
	"sync"
)

// Result is the outcome of a tracked fetch.
type Result struct {
	CourseID string
	Progress CourseProgress
	Err      error
}

// Tracker follows the course a view is showing. Switching to another
// course or closing the tracker cancels the fetch in flight.
type Tracker struct {
	rs *RemoteStore

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewTracker(rs *RemoteStore) *Tracker { return &Tracker{rs: rs} }

// Switch starts fetching courseID. The channel yields one Result and is
// then closed; a cancelled fetch yields nothing.
func (t *Tracker) Switch(ctx context.Context, courseID string) <-chan Result {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		p, err := t.rs.Get(ctx, courseID)
		if ctx.Err() != nil {
			return
		}
		out <- Result{CourseID: courseID, Progress: p, Err: err}
	}()
	return out
}

func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
