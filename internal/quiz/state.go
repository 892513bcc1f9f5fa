package quiz

type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusSubmitting Status = "submitting"
)

// DefaultQuizType is used for results and completion when no type is set.
const DefaultQuizType = "common"

// State is the quiz slice. Values handed out by Store are snapshots and
// must be treated as read-only: reducers replace maps and slices instead of
// mutating them.
type State struct {
	QuizID               ID
	QuizType             string
	Title                string
	Questions            []Question
	Answers              map[ID]Answer
	CurrentQuestionIndex int
	IsCompleted          bool
	Results              *Results
	Status               Status
	Error                string
}

func InitialState() State {
	return State{Answers: map[ID]Answer{}, Status: StatusIdle}
}

func (s State) question(id ID) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// CurrentQuestion returns Questions[CurrentQuestionIndex]; ok is false when
// the index is out of range.
func CurrentQuestion(s State) (Question, bool) {
	i := s.CurrentQuestionIndex
	if i < 0 || i >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[i], true
}

func IsQuizComplete(s State) bool {
	return len(s.Questions) > 0 && len(s.Answers) == len(s.Questions)
}

func QuizInProgress(s State) bool {
	return len(s.Answers) > 0 && len(s.Answers) < len(s.Questions)
}

func AnsweredCount(s State) int { return len(s.Answers) }
