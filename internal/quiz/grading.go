package quiz

import (
	"fmt"
	"strings"
)

// Strategy grades one question type.
type Strategy interface {
	// Grade reports whether v answers q correctly.
	Grade(q Question, v AnswerValue) bool
	// Expected renders the canonical answer of q.
	Expected(q Question) string
	// Render renders the learner's answer for result listings.
	Render(q Question, v AnswerValue) string
}

// Grader routes by question type to the registered Strategy. Questions of
// an unknown type are never correct.
type Grader struct {
	strategies map[QuestionType]Strategy
}

type GraderOption func(*Grader)

// WithStrategy installs or replaces the strategy for t.
func WithStrategy(t QuestionType, s Strategy) GraderOption {
	return func(g *Grader) { g.strategies[t] = s }
}

func NewGrader(opts ...GraderOption) *Grader {
	g := &Grader{strategies: map[QuestionType]Strategy{
		TypeMCQ:       optionStrategy{},
		TypeCode:      optionStrategy{},
		TypeBlanks:    blanksStrategy{},
		TypeOpenEnded: textStrategy{},
	}}
	for _, o := range opts {
		o(g)
	}
	return g
}

var defaultGrader = NewGrader()

func (g *Grader) Grade(q Question, v AnswerValue) bool {
	s, ok := g.strategies[q.Type]
	if !ok || v == nil {
		return false
	}
	return s.Grade(q, v)
}

// Score grades every question against answers. Unanswered questions are
// reported as skipped.
func (g *Grader) Score(questions []Question, answers map[ID]Answer, submittedAt int64) Results {
	res := Results{
		MaxScore:        len(questions),
		QuestionResults: make([]QuestionResult, 0, len(questions)),
		SubmittedAt:     submittedAt,
	}
	for _, q := range questions {
		qr := QuestionResult{QuestionID: q.ID}
		s, known := g.strategies[q.Type]
		if known {
			qr.CorrectAnswer = s.Expected(q)
		}
		a, answered := answers[q.ID]
		switch {
		case !answered || a.Value == nil:
			qr.Skipped = true
		case known:
			qr.IsCorrect = s.Grade(q, a.Value)
			qr.UserAnswer = s.Render(q, a.Value)
		}
		if qr.IsCorrect {
			res.Score++
		}
		res.QuestionResults = append(res.QuestionResults, qr)
	}
	if res.MaxScore > 0 {
		res.Percentage = int(float64(res.Score)/float64(res.MaxScore)*100 + 0.5)
	}
	return res
}

// --- Strategies ---

type optionStrategy struct{}

func (optionStrategy) Grade(q Question, v AnswerValue) bool {
	a, ok := v.(OptionAnswer)
	return ok && a.SelectedOptionID != "" && a.SelectedOptionID == q.CorrectOptionID
}

func (optionStrategy) Expected(q Question) string { return optionText(q, q.CorrectOptionID) }

func (optionStrategy) Render(q Question, v AnswerValue) string {
	if a, ok := v.(OptionAnswer); ok {
		return optionText(q, a.SelectedOptionID)
	}
	return ""
}

func optionText(q Question, id ID) string {
	for _, o := range q.Options {
		if o.ID == id {
			return o.Text
		}
	}
	return string(id)
}

type blanksStrategy struct{}

// expectedBlanks lists one expected value per blank. A question without
// an explicit list has a single blank keyed by its answer.
func expectedBlanks(q Question) []string {
	if len(q.Blanks) > 0 {
		return q.Blanks
	}
	if q.Answer == "" {
		return nil
	}
	return []string{q.Answer}
}

func blankKey(i int) string { return fmt.Sprintf("blank_%d", i) }

func (blanksStrategy) Grade(q Question, v AnswerValue) bool {
	a, ok := v.(BlanksAnswer)
	want := expectedBlanks(q)
	if !ok || len(want) == 0 {
		return false
	}
	for i, exp := range want {
		got, ok := a.FilledBlanks[blankKey(i)]
		if !ok || !strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(exp)) {
			return false
		}
	}
	return true
}

func (blanksStrategy) Expected(q Question) string { return strings.Join(expectedBlanks(q), ", ") }

func (blanksStrategy) Render(q Question, v AnswerValue) string {
	a, ok := v.(BlanksAnswer)
	if !ok {
		return ""
	}
	n := len(expectedBlanks(q))
	if len(a.FilledBlanks) > n {
		n = len(a.FilledBlanks)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, a.FilledBlanks[blankKey(i)])
	}
	return strings.Join(parts, ", ")
}

// textStrategy accepts any non-blank text; openended answers are reviewed
// by people, not graded.
type textStrategy struct{}

func (textStrategy) Grade(_ Question, v AnswerValue) bool {
	a, ok := v.(TextAnswer)
	return ok && strings.TrimSpace(a.Text) != ""
}

func (textStrategy) Expected(q Question) string { return q.Answer }

func (textStrategy) Render(_ Question, v AnswerValue) string {
	if a, ok := v.(TextAnswer); ok {
		return a.Text
	}
	return ""
}
