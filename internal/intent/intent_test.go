package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learn/internal/storage"
)

func TestRoute(t *testing.T) {
	cases := []struct {
		in   Intent
		want string
	}{
		{Intent{Action: WatchVideo, CourseID: "go-101", VideoID: "v 1"}, "/dashboard/course/go-101?video=v+1"},
		{Intent{Action: WatchVideo, CourseID: "go-101"}, "/dashboard/course/go-101"},
		{Intent{Action: TakeQuiz, URL: "/quiz/loops"}, "/quiz/loops"},
		{Intent{Action: TakeQuiz}, "/dashboard/quizzes"},
		{Intent{Action: ContinueCourse, CourseID: "go-101"}, "/dashboard/course/go-101"},
		{Intent{Action: BrowseCourses}, "/dashboard/explore"},
		{Intent{Action: ViewProgress}, "/dashboard/progress"},
		{Intent{Action: "share", URL: "/somewhere"}, "/somewhere"},
		{Intent{Action: "share"}, "/dashboard"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Route(c.in), "%+v", c.in)
	}
}

func TestStoreValidates(t *testing.T) {
	m := NewManager(storage.NewMemory())
	ctx := context.Background()
	assert.Error(t, m.Store(ctx, Intent{}))
	assert.Error(t, m.Store(ctx, Intent{Action: WatchVideo}), "course required")
	assert.NoError(t, m.Store(ctx, Intent{Action: BrowseCourses}))
	assert.Error(t, NewManager(storage.Unavailable()).Store(ctx, Intent{Action: BrowseCourses}))
}

func TestExecuteConsumesOnce(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory())
	require.NoError(t, m.Store(ctx, Intent{Action: ContinueCourse, CourseID: "go-101"}))

	var paths []string
	nav := NavigatorFunc(func(_ context.Context, p string) error {
		paths = append(paths, p)
		return nil
	})
	ran, err := m.Execute(ctx, nav)
	require.NoError(t, err)
	assert.True(t, ran)
	ran, err = m.Execute(ctx, nav)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, []string{"/dashboard/course/go-101"}, paths)
}

func TestStaleIntentIsDropped(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := storage.NewMemory()
	m := NewManager(store, WithClock(func() time.Time { return now }))
	require.NoError(t, m.Store(ctx, Intent{Action: ViewProgress}))

	now = now.Add(31 * time.Minute)
	_, ok := m.Restore(ctx)
	assert.False(t, ok)
	assert.False(t, store.HasItem(ctx, Key, storage.Temporary))
}

func TestMalformedIntentIsDropped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.True(t, store.SetItem(ctx, Key, []int{1, 2}, storage.Temporary))
	_, ok := NewManager(store).Restore(ctx)
	assert.False(t, ok)
	assert.False(t, store.HasItem(ctx, Key, storage.Temporary))
}
