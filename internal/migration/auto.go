package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

const welcomeKeyPrefix = "migration_welcome_"

func WelcomeKey(userID string) string { return welcomeKeyPrefix + userID }

// GuestKeys are removed once guest data has moved to the account.
var GuestKeys = []string{progress.GuestKey}

// Welcome is the one-shot notice shown after guest data moved.
type Welcome struct {
	ShowWelcome     bool  `json:"showWelcome"`
	MigratedCourses int   `json:"migratedCourses"`
	Timestamp       int64 `json:"timestamp"` // unix millis
}

type Result struct {
	Success         bool
	MigratedCourses []string
	Error           string
}

// Initializer stores a course progress under the signed-in account.
type Initializer interface {
	Init(ctx context.Context, p progress.CourseProgress) (progress.CourseProgress, error)
}

// AutoMigrator moves guest progress to the signed-in account.
type AutoMigrator struct {
	store  *storage.Adapter
	guest  *progress.GuestStore
	remote Initializer
	now    func() time.Time
	logger *zap.Logger
}

func NewAutoMigrator(store *storage.Adapter, guest *progress.GuestStore, remote Initializer, logger *zap.Logger) *AutoMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoMigrator{store: store, guest: guest, remote: remote, now: time.Now, logger: logger}
}

// PerformAutoMigration copies every guest course to the account, then
// clears guest keys and leaves a welcome marker. On failure guest data is
// kept so the migration can be retried.
func (a *AutoMigrator) PerformAutoMigration(ctx context.Context, userID string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Error: fmt.Sprint(r)}
			a.logger.Error("guest migration panicked", zap.String("user", userID), zap.Any("panic", r))
		}
	}()

	all := a.guest.All(ctx)
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := all[id]
		p.CourseID = id
		if _, err := a.remote.Init(ctx, p); err != nil {
			a.logger.Error("guest migration failed", zap.String("user", userID), zap.String("course", id), zap.Error(err))
			return Result{Error: err.Error()}
		}
	}
	for _, k := range GuestKeys {
		a.store.RemoveItem(ctx, k, storage.Plain)
	}
	if len(ids) > 0 {
		a.store.SetItem(ctx, WelcomeKey(userID), Welcome{
			ShowWelcome:     true,
			MigratedCourses: len(ids),
			Timestamp:       a.now().UnixMilli(),
		}, storage.Plain)
	}
	a.logger.Info("guest progress migrated", zap.String("user", userID), zap.Int("courses", len(ids)))
	return Result{Success: true, MigratedCourses: ids}
}

// Welcome returns the pending welcome notice of userID.
func (a *AutoMigrator) Welcome(ctx context.Context, userID string) (Welcome, bool) {
	var w Welcome
	if !a.store.GetItem(ctx, WelcomeKey(userID), &w, storage.Plain) || !w.ShowWelcome {
		return Welcome{}, false
	}
	return w, true
}

func (a *AutoMigrator) DismissWelcome(ctx context.Context, userID string) bool {
	return a.store.RemoveItem(ctx, WelcomeKey(userID), storage.Plain)
}

// Watcher runs the guest migration when a session turns authenticated
// while guest progress exists. Each user is migrated at most once.
type Watcher struct {
	auto  *AutoMigrator
	guest *progress.GuestStore

	mu   sync.Mutex
	last auth.Status
	done map[string]bool
}

func NewWatcher(auto *AutoMigrator, guest *progress.GuestStore) *Watcher {
	return &Watcher{auto: auto, guest: guest, last: auth.StatusUnauthenticated, done: map[string]bool{}}
}

// Observe feeds the current session. It returns the migration result when
// this observation triggered one.
func (w *Watcher) Observe(ctx context.Context, s auth.Session) (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.last
	w.last = s.Status
	if !s.Authenticated() || prev == auth.StatusAuthenticated || w.done[s.UserID] {
		return Result{}, false
	}
	if len(w.guest.All(ctx)) == 0 {
		return Result{}, false
	}
	res := w.auto.PerformAutoMigration(ctx, s.UserID)
	if res.Success {
		w.done[s.UserID] = true
	}
	return res, true
}
