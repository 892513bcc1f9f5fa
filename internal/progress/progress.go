package progress

import (
	"math"
	"sort"
)

// CourseProgress is a learner's progress through one course.
type CourseProgress struct {
	CourseID          string   `json:"courseId" validate:"required,max=128"`
	Progress          int      `json:"progress" validate:"gte=0,lte=100"`
	CompletedChapters []string `json:"completedChapters"`
	CurrentChapterID  string   `json:"currentChapterId,omitempty"`
	IsCompleted       bool     `json:"isCompleted"`
	TotalChapters     int      `json:"totalChapters,omitempty" validate:"gte=0"`
	UpdatedAt         int64    `json:"updatedAt"` // unix millis
}

// Normalize returns p with its invariants restored:
//   - completed chapters are a sorted set
//   - with a known chapter count, progress is the completed share and a
//     fully completed course is marked completed
//   - completed chapters imply progress > 0
//   - a completed course is at 100
func (p CourseProgress) Normalize() CourseProgress {
	p.CompletedChapters = uniqueSorted(p.CompletedChapters)
	done := len(p.CompletedChapters)
	if p.TotalChapters > 0 {
		if done >= p.TotalChapters {
			p.IsCompleted = true
		}
		p.Progress = int(math.Round(100 * float64(done) / float64(p.TotalChapters)))
	}
	if p.Progress < 0 {
		p.Progress = 0
	}
	if p.Progress > 100 {
		p.Progress = 100
	}
	if done > 0 && p.Progress == 0 {
		p.Progress = 1
	}
	if p.IsCompleted {
		p.Progress = 100
	}
	return p
}

// WithChapterCompleted marks chapter done. total updates the known chapter
// count when positive.
func (p CourseProgress) WithChapterCompleted(chapterID string, total int) CourseProgress {
	p.CompletedChapters = append(append([]string(nil), p.CompletedChapters...), chapterID)
	if total > 0 {
		p.TotalChapters = total
	}
	return p.Normalize()
}

func (p CourseProgress) WithCurrentChapter(chapterID string) CourseProgress {
	p.CurrentChapterID = chapterID
	return p.Normalize()
}

func (p CourseProgress) HasCompleted(chapterID string) bool {
	i := sort.SearchStrings(p.CompletedChapters, chapterID)
	return i < len(p.CompletedChapters) && p.CompletedChapters[i] == chapterID
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
