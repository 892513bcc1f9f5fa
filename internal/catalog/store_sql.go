package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

// SQLStore keeps quizzes and progress as JSON documents in TEXT columns.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutQuiz(ctx context.Context, quizType, slug string, p quiz.Payload) error {
	qj, err := json.Marshal(p.Questions)
	if err != nil {
		return err
	}
	id := p.ID
	if id == "" {
		id = quiz.ID(slug)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (quiz_type,slug,id,title,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (quiz_type,slug) DO UPDATE SET id=EXCLUDED.id, title=EXCLUDED.title, questions_json=EXCLUDED.questions_json`,
		quizType, slug, string(id), p.Title, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, quizType, slug string) (quiz.Payload, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,questions_json FROM quizzes WHERE quiz_type=$1 AND slug=$2`, quizType, slug)
	var (
		p     quiz.Payload
		id    string
		qjson string
	)
	if err := row.Scan(&id, &p.Title, &qjson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Payload{}, ErrNotFound
		}
		return quiz.Payload{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &p.Questions); err != nil {
		return quiz.Payload{}, fmt.Errorf("decode questions of %s/%s: %w", quizType, slug, err)
	}
	p.ID = quiz.ID(id)
	p.Type = quizType
	return p, nil
}

func (s *SQLStore) RecordCompletion(ctx context.Context, quizType, slug, userID string, r quiz.Results) (Completion, error) {
	rj, err := json.Marshal(r)
	if err != nil {
		return Completion{}, err
	}
	c := newCompletion(quizType, slug, userID, r, time.Now())
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_completions (id,quiz_type,slug,user_id,score,percentage,results_json,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, quizType, slug, userID, r.Score, r.Percentage, string(rj), c.CompletedAt)
	if err != nil {
		return Completion{}, err
	}
	return c, nil
}

func (s *SQLStore) LatestCompletion(ctx context.Context, quizType, slug, userID string) (Completion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,results_json,completed_at FROM quiz_completions
		WHERE quiz_type=$1 AND slug=$2 AND user_id=$3
		ORDER BY completed_at DESC LIMIT 1`, quizType, slug, userID)
	c := Completion{QuizType: quizType, Slug: slug, UserID: userID}
	var rj string
	if err := row.Scan(&c.ID, &rj, &c.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Completion{}, ErrNotFound
		}
		return Completion{}, err
	}
	if err := json.Unmarshal([]byte(rj), &c.Results); err != nil {
		return Completion{}, err
	}
	return c, nil
}

func (s *SQLStore) GetProgress(ctx context.Context, userID, courseID string) (progress.CourseProgress, error) {
	var pj string
	err := s.db.QueryRowContext(ctx,
		`SELECT progress_json FROM course_progress WHERE user_id=$1 AND course_id=$2`, userID, courseID).Scan(&pj)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progress.CourseProgress{}, ErrNotFound
		}
		return progress.CourseProgress{}, err
	}
	var p progress.CourseProgress
	if err := json.Unmarshal([]byte(pj), &p); err != nil {
		return progress.CourseProgress{}, err
	}
	return p, nil
}

func (s *SQLStore) PutProgress(ctx context.Context, userID string, p progress.CourseProgress) (progress.CourseProgress, error) {
	p = p.Normalize()
	if p.UpdatedAt == 0 {
		p.UpdatedAt = time.Now().UnixMilli()
	}
	pj, err := json.Marshal(p)
	if err != nil {
		return progress.CourseProgress{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO course_progress (user_id,course_id,progress_json,updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id,course_id) DO UPDATE SET progress_json=EXCLUDED.progress_json, updated_at=EXCLUDED.updated_at`,
		userID, p.CourseID, string(pj), p.UpdatedAt)
	if err != nil {
		return progress.CourseProgress{}, err
	}
	return p, nil
}
