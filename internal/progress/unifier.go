package progress

import (
	"context"

	"github.com/mind-engage/mindengage-learn/internal/auth"
)

// SessionSource reports who is signed in.
type SessionSource interface {
	Session(ctx context.Context) auth.Session
}

// Unifier presents guest and server progress behind one API. It holds no
// state of its own; every call branches on the current session.
type Unifier struct {
	guest    *GuestStore
	remote   *RemoteStore
	sessions SessionSource
}

func NewUnifier(guest *GuestStore, remote *RemoteStore, sessions SessionSource) *Unifier {
	return &Unifier{guest: guest, remote: remote, sessions: sessions}
}

func (u *Unifier) IsAuthenticated(ctx context.Context) bool {
	return u.sessions.Session(ctx).Authenticated()
}

// GetProgress returns the progress of courseID; ok is false when nothing
// has been recorded for a guest.
func (u *Unifier) GetProgress(ctx context.Context, courseID string) (p CourseProgress, ok bool, err error) {
	if u.IsAuthenticated(ctx) {
		p, err = u.remote.Get(ctx, courseID)
		return p, err == nil, err
	}
	p, ok = u.guest.Get(ctx, courseID)
	return p, ok, nil
}

func (u *Unifier) MarkChapterCompleted(ctx context.Context, courseID, chapterID string, total int) (CourseProgress, error) {
	if u.IsAuthenticated(ctx) {
		return u.remote.MarkChapterCompleted(ctx, courseID, chapterID, total)
	}
	return u.guest.MarkChapterCompleted(ctx, courseID, chapterID, total), nil
}

func (u *Unifier) SetCurrentChapter(ctx context.Context, courseID, chapterID string) (CourseProgress, error) {
	if u.IsAuthenticated(ctx) {
		return u.remote.SetCurrentChapter(ctx, courseID, chapterID)
	}
	return u.guest.SetCurrentChapter(ctx, courseID, chapterID), nil
}
