package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

func newStore(t *testing.T) (*storage.Adapter, *storage.MemoryBackend) {
	t.Helper()
	sealer, err := storage.NewSealer("test")
	require.NoError(t, err)
	local := storage.NewMemoryBackend()
	return storage.NewAdapter(local, storage.NewMemoryBackend(), storage.WithSealer(sealer)), local
}

func TestMigrateLegacyOnce(t *testing.T) {
	ctx := context.Background()
	store, local := newStore(t)
	for k, v := range map[string]string{
		"authToken":          "jwt-abc",
		"animationsEnabled":  "false",
		"hasSeenChatTooltip": "true",
		"referralCode":       "FRIEND",
		"userPreferences":    `{"lang":"en"}`,
		"quiz_legacy_basics": `{"answers":{}}`,
		"quiz_session_s1":    `{"quizId":"q"}`,
		"unrelated":          "x",
	} {
		require.NoError(t, local.Set(ctx, k, v))
	}

	m := NewMigrator(store, nil)
	rep := m.MigrateLegacy(ctx)
	require.NoError(t, store.Flush(ctx))
	assert.Equal(t, 8, rep.Scanned)
	assert.Equal(t, 6, rep.Migrated)
	assert.Empty(t, rep.Errors)

	var tok string
	require.True(t, store.GetItem(ctx, "auth_token", &tok, storage.Secure))
	assert.Equal(t, "jwt-abc", tok)
	var anim bool
	require.True(t, store.GetItem(ctx, "pref_animations_enabled", &anim, storage.Plain))
	assert.False(t, anim)
	var seen bool
	require.True(t, store.GetItem(ctx, "pref_seen_chat_tooltip", &seen, storage.Plain))
	assert.True(t, seen)
	var code string
	require.True(t, store.GetItem(ctx, "referral_code", &code, storage.Temporary))
	assert.Equal(t, "FRIEND", code)
	var prefs map[string]string
	require.True(t, store.GetItem(ctx, "pref_user", &prefs, storage.Plain))
	assert.Equal(t, "en", prefs["lang"])
	assert.True(t, store.HasItem(ctx, "quiz_legacy_basics", storage.Secure))
	assert.True(t, store.HasItem(ctx, "quiz_session_s1", storage.Plain), "current scheme untouched")
	assert.False(t, store.HasItem(ctx, "authToken", storage.Plain))

	again := m.MigrateLegacy(ctx)
	assert.Equal(t, 0, again.Migrated)
	assert.Empty(t, again.Errors)
}

func TestMigrateLegacyCollectsItemErrors(t *testing.T) {
	ctx := context.Background()
	store, local := newStore(t)
	require.NoError(t, local.Set(ctx, "animationsEnabled", "maybe"))
	require.NoError(t, local.Set(ctx, "theme", `"dark"`))

	rep := NewMigrator(store, nil).MigrateLegacy(ctx)
	assert.Equal(t, 1, rep.Migrated)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "animationsEnabled", rep.Errors[0].Key)
	assert.True(t, store.HasItem(ctx, "animationsEnabled", storage.Plain), "failed key stays for retry")
}

func TestMigrateLegacyKeepsKeyWhenWriteIsRejected(t *testing.T) {
	ctx := context.Background()
	sealer, err := storage.NewSealer("test")
	require.NoError(t, err)
	local := storage.NewMemoryBackend()
	require.NoError(t, local.Set(ctx, "authToken", "jwt-abc"))
	local.WithQuota(40) // room for the legacy value, not for the sealed copy
	store := storage.NewAdapter(local, storage.NewMemoryBackend(), storage.WithSealer(sealer))

	rep := NewMigrator(store, nil).MigrateLegacy(ctx)
	require.NoError(t, store.Flush(ctx))

	assert.Equal(t, 0, rep.Migrated)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "authToken", rep.Errors[0].Key)
	assert.ErrorIs(t, rep.Errors[0], storage.ErrQuotaExceeded)

	raw, err := local.Get(ctx, "authToken")
	require.NoError(t, err, "legacy value must survive a rejected write")
	assert.Equal(t, "jwt-abc", raw)
	assert.False(t, store.HasItem(ctx, "auth_token", storage.Secure))
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	store, local := newStore(t)
	require.NoError(t, local.Set(ctx, "theme", "light"))
	m := NewMigrator(store, nil)
	assert.Equal(t, 1, m.RunOnce(ctx).Migrated)
	require.NoError(t, local.Set(ctx, "lastVisitedCourse", "go-101"))
	assert.Equal(t, 1, m.RunOnce(ctx).Migrated, "second call returns the first report")
	assert.Equal(t, 0, NewMigrator(storage.Unavailable(), nil).RunOnce(ctx).Scanned)
}

type fakeRemote struct {
	saved map[string]progress.CourseProgress
	err   error
}

func (f *fakeRemote) Init(_ context.Context, p progress.CourseProgress) (progress.CourseProgress, error) {
	if f.err != nil {
		return progress.CourseProgress{}, f.err
	}
	f.saved[p.CourseID] = p.Normalize()
	return p, nil
}

func TestPerformAutoMigration(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	guest := progress.NewGuestStore(store)
	guest.MarkChapterCompleted(ctx, "go-101", "ch-1", 4)
	remote := &fakeRemote{saved: map[string]progress.CourseProgress{}}
	a := NewAutoMigrator(store, guest, remote, nil)

	res := a.PerformAutoMigration(ctx, "user-1")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"go-101"}, res.MigratedCourses)
	assert.Equal(t, 25, remote.saved["go-101"].Progress)
	assert.Empty(t, guest.All(ctx))

	w, ok := a.Welcome(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, 1, w.MigratedCourses)
	require.True(t, a.DismissWelcome(ctx, "user-1"))
	_, ok = a.Welcome(ctx, "user-1")
	assert.False(t, ok)
}

func TestPerformAutoMigrationFailureKeepsGuestData(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	guest := progress.NewGuestStore(store)
	guest.MarkChapterCompleted(ctx, "go-101", "ch-1", 4)
	a := NewAutoMigrator(store, guest, &fakeRemote{err: errors.New("status 503")}, nil)

	res := a.PerformAutoMigration(ctx, "user-1")
	assert.False(t, res.Success)
	assert.Equal(t, "status 503", res.Error)
	assert.Len(t, guest.All(ctx), 1)
	_, ok := a.Welcome(ctx, "user-1")
	assert.False(t, ok)
}

func TestWatcherTriggersOncePerUser(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	guest := progress.NewGuestStore(store)
	remote := &fakeRemote{saved: map[string]progress.CourseProgress{}}
	w := NewWatcher(NewAutoMigrator(store, guest, remote, nil), guest)
	signedIn := auth.Session{Status: auth.StatusAuthenticated, UserID: "user-1"}

	_, ran := w.Observe(ctx, signedIn)
	assert.False(t, ran, "no guest progress")

	w.Observe(ctx, auth.Guest())
	guest.MarkChapterCompleted(ctx, "go-101", "ch-1", 2)
	_, ran = w.Observe(ctx, auth.Session{Status: auth.StatusLoading})
	assert.False(t, ran)
	res, ran := w.Observe(ctx, signedIn)
	require.True(t, ran)
	assert.True(t, res.Success)
	_, ran = w.Observe(ctx, signedIn)
	assert.False(t, ran, "no transition")

	w.Observe(ctx, auth.Guest())
	guest.MarkChapterCompleted(ctx, "go-101", "ch-2", 2)
	_, ran = w.Observe(ctx, signedIn)
	assert.False(t, ran, "user already migrated")
}
