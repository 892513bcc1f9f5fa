package quiz

// Reduce applies a to s with the default grader. It never mutates s.
func Reduce(s State, a Action) State { return reduce(defaultGrader, s, a) }

func reduce(g *Grader, s State, a Action) State {
	switch a := a.(type) {
	case FetchQuizPending:
		s.Status = StatusLoading
		s.Error = ""
		s.QuizID = a.QuizID
		s.QuizType = a.QuizType

	case FetchQuizFulfilled:
		s.Status = StatusSucceeded
		s.Error = ""
		s.QuizID = a.Payload.ID
		if s.QuizID == "" {
			s.QuizID = a.QuizID
		}
		s.QuizType = a.QuizType
		if s.QuizType == "" {
			s.QuizType = a.Payload.Type
		}
		s.Title = a.Payload.Title
		s.Questions = a.Payload.Questions
		s.Answers = map[ID]Answer{}
		s.CurrentQuestionIndex = 0
		s.Results = nil
		if a.Restored != nil {
			for id, ans := range a.Restored.Answers {
				if _, ok := s.question(id); ok {
					s.Answers[id] = ans
				}
			}
			if i := a.Restored.CurrentQuestionIndex; i > 0 && i < len(s.Questions) {
				s.CurrentQuestionIndex = i
			}
		}
		s.IsCompleted = IsQuizComplete(s)

	case FetchQuizRejected:
		s.Status = StatusFailed
		s.Error = a.Error

	case SaveAnswer:
		q, ok := s.question(a.QuestionID)
		if !ok {
			return s
		}
		answers := make(map[ID]Answer, len(s.Answers)+1)
		for k, v := range s.Answers {
			answers[k] = v
		}
		answers[a.QuestionID] = Answer{
			QuestionID: a.QuestionID,
			Value:      a.Value,
			IsCorrect:  g.Grade(q, a.Value),
			Timestamp:  a.Timestamp,
		}
		s.Answers = answers
		s.IsCompleted = len(s.Answers) == len(s.Questions)

	case SetCurrentQuestionIndex:
		s.CurrentQuestionIndex = clampIndex(a.Index, len(s.Questions))

	case SubmitQuizPending:
		s.Status = StatusSubmitting
		s.Error = ""

	case SubmitQuizFulfilled:
		r := a.Results
		s.Status = StatusSucceeded
		s.Results = &r
		s.IsCompleted = true

	case SubmitQuizRejected:
		s.Status = StatusFailed
		s.Error = a.Error

	case FetchResultsPending:
		s.Status = StatusLoading
		s.Error = ""

	case FetchResultsFulfilled:
		r := a.Results
		s.Status = StatusSucceeded
		s.Results = &r

	case FetchResultsRejected:
		s.Status = StatusFailed
		s.Error = a.Error

	case ResetQuiz:
		return InitialState()
	}
	return s
}

// clampIndex bounds i to [0, n-1], or 0 when there are no questions.
func clampIndex(i, n int) int {
	switch {
	case n == 0 || i < 0:
		return 0
	case i >= n:
		return n - 1
	}
	return i
}
