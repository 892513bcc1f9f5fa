package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ID is a question, option or quiz identifier. The API sends ids as JSON
// strings or numbers; both decode to the same ID.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("quiz: id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type QuestionType string

const (
	TypeMCQ       QuestionType = "mcq"
	TypeCode      QuestionType = "code"
	TypeBlanks    QuestionType = "blanks"
	TypeOpenEnded QuestionType = "openended"
)

type Option struct {
	ID   ID     `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID              ID           `json:"id" validate:"required"`
	Question        string       `json:"question"`
	Type            QuestionType `json:"type" validate:"oneof=mcq code blanks openended"`
	Options         []Option     `json:"options,omitempty"`
	CorrectOptionID ID           `json:"correctOptionId,omitempty"`
	Answer          string       `json:"answer,omitempty"`
	Blanks          []string     `json:"blanks,omitempty"` // one expected value per blank_i
	Explanation     string       `json:"explanation,omitempty"`
}

// Payload is the quiz document served by GET /api/quizzes/<type>/<slug>.
type Payload struct {
	ID        ID         `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// AnswerValue is one of OptionAnswer, BlanksAnswer or TextAnswer.
type AnswerValue interface {
	kind() string
}

// OptionAnswer answers mcq and code questions.
type OptionAnswer struct {
	SelectedOptionID ID
}

// BlanksAnswer maps blank_0, blank_1, ... to the learner's input.
type BlanksAnswer struct {
	FilledBlanks map[string]string
}

// TextAnswer answers openended questions.
type TextAnswer struct {
	Text string
}

const (
	kindOption = "option"
	kindBlanks = "blanks"
	kindText   = "text"
)

func (OptionAnswer) kind() string { return kindOption }
func (BlanksAnswer) kind() string { return kindBlanks }
func (TextAnswer) kind() string   { return kindText }

type Answer struct {
	QuestionID ID
	Value      AnswerValue
	IsCorrect  bool
	Timestamp  int64 // unix millis
}

type answerWire struct {
	QuestionID       ID                `json:"questionId"`
	Kind             string            `json:"kind,omitempty"`
	SelectedOptionID *ID               `json:"selectedOptionId,omitempty"`
	FilledBlanks     map[string]string `json:"filledBlanks,omitempty"`
	Text             *string           `json:"text,omitempty"`
	IsCorrect        bool              `json:"isCorrect"`
	Timestamp        int64             `json:"timestamp"`
}

var errAnswerKind = errors.New("quiz: answer has no value")

func (a Answer) MarshalJSON() ([]byte, error) {
	w := answerWire{QuestionID: a.QuestionID, IsCorrect: a.IsCorrect, Timestamp: a.Timestamp}
	switch v := a.Value.(type) {
	case OptionAnswer:
		w.Kind = kindOption
		w.SelectedOptionID = &v.SelectedOptionID
	case BlanksAnswer:
		w.Kind = kindBlanks
		w.FilledBlanks = v.FilledBlanks
		if w.FilledBlanks == nil {
			w.FilledBlanks = map[string]string{}
		}
	case TextAnswer:
		w.Kind = kindText
		w.Text = &v.Text
	case nil:
	default:
		return nil, fmt.Errorf("quiz: unknown answer value %T", v)
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the tagged form and, for envelopes written without
// a kind, infers the variant from the field that is present.
func (a *Answer) UnmarshalJSON(b []byte) error {
	var w answerWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind := w.Kind
	if kind == "" {
		switch {
		case w.SelectedOptionID != nil:
			kind = kindOption
		case w.FilledBlanks != nil:
			kind = kindBlanks
		case w.Text != nil:
			kind = kindText
		}
	}
	*a = Answer{QuestionID: w.QuestionID, IsCorrect: w.IsCorrect, Timestamp: w.Timestamp}
	switch kind {
	case kindOption:
		var id ID
		if w.SelectedOptionID != nil {
			id = *w.SelectedOptionID
		}
		a.Value = OptionAnswer{SelectedOptionID: id}
	case kindBlanks:
		a.Value = BlanksAnswer{FilledBlanks: w.FilledBlanks}
	case kindText:
		var s string
		if w.Text != nil {
			s = *w.Text
		}
		a.Value = TextAnswer{Text: s}
	case "":
		return errAnswerKind
	default:
		return fmt.Errorf("quiz: unknown answer kind %q", kind)
	}
	return nil
}

type QuestionResult struct {
	QuestionID    ID     `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Skipped       bool   `json:"skipped"`
}

type Results struct {
	Score           int              `json:"score" validate:"gte=0,ltefield=MaxScore"`
	MaxScore        int              `json:"maxScore" validate:"gte=0"`
	Percentage      int              `json:"percentage" validate:"gte=0,lte=100"`
	QuestionResults []QuestionResult `json:"questionResults"`
	SubmittedAt     int64            `json:"submittedAt"` // unix millis
}

// Snapshot is the restorable part of a persisted session.
type Snapshot struct {
	QuizID               ID
	Answers              map[ID]Answer
	CurrentQuestionIndex int
}
