package progress

import (
	"context"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/storage"
)

// GuestKey holds every guest course progress as one JSON object keyed by
// course id.
const GuestKey = "guest_progress"

// GuestStore keeps progress of signed-out learners in local storage.
type GuestStore struct {
	store *storage.Adapter
	now   func() time.Time
	mu    sync.Mutex
}

func NewGuestStore(store *storage.Adapter) *GuestStore {
	return &GuestStore{store: store, now: time.Now}
}

func (g *GuestStore) load(ctx context.Context) map[string]CourseProgress {
	all := map[string]CourseProgress{}
	if !g.store.GetItem(ctx, GuestKey, &all, storage.Plain) || all == nil {
		return map[string]CourseProgress{}
	}
	return all
}

// All returns every guest course progress.
func (g *GuestStore) All(ctx context.Context) map[string]CourseProgress {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(ctx)
}

func (g *GuestStore) Get(ctx context.Context, courseID string) (CourseProgress, bool) {
	p, ok := g.All(ctx)[courseID]
	return p, ok
}

func (g *GuestStore) update(ctx context.Context, courseID string, fn func(CourseProgress) CourseProgress) CourseProgress {
	g.mu.Lock()
	defer g.mu.Unlock()
	all := g.load(ctx)
	p, ok := all[courseID]
	if !ok {
		p = CourseProgress{CourseID: courseID}
	}
	p = fn(p)
	p.CourseID = courseID
	p.UpdatedAt = g.now().UnixMilli()
	all[courseID] = p
	g.store.SetItem(ctx, GuestKey, all, storage.Plain)
	return p
}

func (g *GuestStore) MarkChapterCompleted(ctx context.Context, courseID, chapterID string, total int) CourseProgress {
	return g.update(ctx, courseID, func(p CourseProgress) CourseProgress {
		return p.WithChapterCompleted(chapterID, total)
	})
}

func (g *GuestStore) SetCurrentChapter(ctx context.Context, courseID, chapterID string) CourseProgress {
	return g.update(ctx, courseID, func(p CourseProgress) CourseProgress {
		return p.WithCurrentChapter(chapterID)
	})
}

// Put replaces the stored progress of p.CourseID.
func (g *GuestStore) Put(ctx context.Context, p CourseProgress) CourseProgress {
	return g.update(ctx, p.CourseID, func(CourseProgress) CourseProgress { return p.Normalize() })
}

// Clear drops all guest progress.
func (g *GuestStore) Clear(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.RemoveItem(ctx, GuestKey, storage.Plain)
}
