package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher is the server side of authenticated progress.
type Fetcher interface {
	GetProgress(ctx context.Context, courseID string) (*CourseProgress, error)
	UpdateProgress(ctx context.Context, p CourseProgress) (*CourseProgress, error)
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const DefaultCacheTTL = 60 * time.Second

type entry struct {
	progress  CourseProgress
	fetchedAt time.Time
	cached    bool
	status    Status
	err       string
}

// RemoteStore is the server-synced progress of the signed-in learner.
// Fetch results are cached per course for the TTL and concurrent fetches
// of one course share a single request. The shared request is not tied to
// any one caller's context; each caller stops waiting on its own ctx.
type RemoteStore struct {
	api    Fetcher
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64 // bumped by Reset; results of older generations are dropped
}

type RemoteOption func(*RemoteStore)

func WithCacheTTL(d time.Duration) RemoteOption   { return func(r *RemoteStore) { r.ttl = d } }
func WithClock(now func() time.Time) RemoteOption { return func(r *RemoteStore) { r.now = now } }
func WithLogger(l *zap.Logger) RemoteOption       { return func(r *RemoteStore) { r.logger = l } }

func NewRemoteStore(api Fetcher, opts ...RemoteOption) *RemoteStore {
	r := &RemoteStore{
		api:     api,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: map[string]*entry{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *RemoteStore) entryLocked(courseID string) *entry {
	e, ok := r.entries[courseID]
	if !ok {
		e = &entry{status: StatusIdle}
		r.entries[courseID] = e
	}
	return e
}

// Status returns the fetch status of a course and the last error message.
func (r *RemoteStore) Status(courseID string) (Status, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[courseID]
	if !ok {
		return StatusIdle, ""
	}
	return e.status, e.err
}

// Cached returns the cached progress regardless of age.
func (r *RemoteStore) Cached(courseID string) (CourseProgress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[courseID]
	if !ok || !e.cached {
		return CourseProgress{}, false
	}
	return e.progress, true
}

// Invalidate forces the next Get of courseID to hit the server.
func (r *RemoteStore) Invalidate(courseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[courseID]; ok {
		e.fetchedAt = time.Time{}
	}
}

// Reset drops every cached course, e.g. when the signed-in user changes.
// Fetches and updates started before Reset no longer reach the cache.
func (r *RemoteStore) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = map[string]*entry{}
	r.gen++
}

func (r *RemoteStore) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// store caches p unless the store was reset after gen was taken.
func (r *RemoteStore) store(gen uint64, courseID string, p CourseProgress) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	e := r.entryLocked(courseID)
	e.progress = p
	e.cached = true
	e.fetchedAt = r.now()
	e.status = StatusSucceeded
	e.err = ""
	return true
}

// Get returns the progress of courseID, from cache when fresh. A caller
// whose ctx is cancelled gets ctx's error and leaves the status untouched.
func (r *RemoteStore) Get(ctx context.Context, courseID string) (CourseProgress, error) {
	if err := ctx.Err(); err != nil {
		return CourseProgress{}, err
	}
	r.mu.Lock()
	e := r.entryLocked(courseID)
	if e.cached && r.now().Sub(e.fetchedAt) < r.ttl {
		p := e.progress
		r.mu.Unlock()
		return p, nil
	}
	prev := e.status
	e.status = StatusLoading
	gen := r.gen
	r.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(fmt.Sprintf("%d/%s", gen, courseID), func() (interface{}, error) {
		p, err := r.api.GetProgress(fetchCtx, courseID)
		if err != nil {
			return nil, err
		}
		np := p.Normalize()
		np.CourseID = courseID
		r.store(gen, courseID, np)
		return np, nil
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(CourseProgress), nil
		}
		r.mu.Lock()
		if gen == r.gen {
			e := r.entryLocked(courseID)
			e.status = StatusFailed
			e.err = res.Err.Error()
		}
		r.mu.Unlock()
		r.logger.Warn("fetch progress", zap.String("course", courseID), zap.Error(res.Err))
		return CourseProgress{}, fmt.Errorf("fetch progress %s: %w", courseID, res.Err)
	case <-ctx.Done():
		r.mu.Lock()
		if gen == r.gen {
			if e := r.entryLocked(courseID); e.status == StatusLoading {
				e.status = prev
			}
		}
		r.mu.Unlock()
		return CourseProgress{}, ctx.Err()
	}
}

// Init stores p on the server as the learner's progress.
func (r *RemoteStore) Init(ctx context.Context, p CourseProgress) (CourseProgress, error) {
	gen := r.generation()
	p = p.Normalize()
	saved, err := r.api.UpdateProgress(ctx, p)
	if err != nil {
		return CourseProgress{}, fmt.Errorf("init progress %s: %w", p.CourseID, err)
	}
	np := saved.Normalize()
	r.store(gen, np.CourseID, np)
	return np, nil
}

func (r *RemoteStore) update(ctx context.Context, courseID string, fn func(CourseProgress) CourseProgress) (CourseProgress, error) {
	cur, err := r.Get(ctx, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	next := fn(cur)
	next.CourseID = courseID
	next.UpdatedAt = r.now().UnixMilli()
	return r.Init(ctx, next)
}

func (r *RemoteStore) MarkChapterCompleted(ctx context.Context, courseID, chapterID string, total int) (CourseProgress, error) {
	return r.update(ctx, courseID, func(p CourseProgress) CourseProgress {
		return p.WithChapterCompleted(chapterID, total)
	})
}

func (r *RemoteStore) SetCurrentChapter(ctx context.Context, courseID, chapterID string) (CourseProgress, error) {
	return r.update(ctx, courseID, func(p CourseProgress) CourseProgress {
		return p.WithCurrentChapter(chapterID)
	})
}
