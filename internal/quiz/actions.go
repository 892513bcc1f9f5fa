package quiz

// Action is anything the store can reduce. Type follows
// quiz/<op>[/pending|/fulfilled|/rejected].
type Action interface {
	Type() string
}

type FetchQuizPending struct {
	QuizID   ID
	QuizType string
}

type FetchQuizFulfilled struct {
	QuizID   ID
	QuizType string
	Payload  Payload
	Restored *Snapshot
}

type FetchQuizRejected struct{ Error string }

type SaveAnswer struct {
	QuestionID ID
	Value      AnswerValue
	Timestamp  int64
}

type SetCurrentQuestionIndex struct{ Index int }

type SubmitQuizPending struct{}

type SubmitQuizFulfilled struct{ Results Results }

type SubmitQuizRejected struct{ Error string }

type FetchResultsPending struct{ Slug string }

type FetchResultsFulfilled struct{ Results Results }

type FetchResultsRejected struct{ Error string }

type ResetQuiz struct{}

func (FetchQuizPending) Type() string        { return "quiz/fetchQuiz/pending" }
func (FetchQuizFulfilled) Type() string      { return "quiz/fetchQuiz/fulfilled" }
func (FetchQuizRejected) Type() string       { return "quiz/fetchQuiz/rejected" }
func (SaveAnswer) Type() string              { return "quiz/saveAnswer" }
func (SetCurrentQuestionIndex) Type() string { return "quiz/setCurrentQuestionIndex" }
func (SubmitQuizPending) Type() string       { return "quiz/submitQuiz/pending" }
func (SubmitQuizFulfilled) Type() string     { return "quiz/submitQuiz/fulfilled" }
func (SubmitQuizRejected) Type() string      { return "quiz/submitQuiz/rejected" }
func (FetchResultsPending) Type() string     { return "quiz/fetchQuizResults/pending" }
func (FetchResultsFulfilled) Type() string   { return "quiz/fetchQuizResults/fulfilled" }
func (FetchResultsRejected) Type() string    { return "quiz/fetchQuizResults/rejected" }
func (ResetQuiz) Type() string               { return "quiz/resetQuiz" }
