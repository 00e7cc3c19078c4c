package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"codemaster-service/internal/domain"
)

// CourseLoader loads course JSONB documents from Postgres.
type CourseLoader struct {
	pool *pgxpool.Pool
}

func NewCourseLoader(pool *pgxpool.Pool) *CourseLoader {
	return &CourseLoader{pool: pool}
}

func (l *CourseLoader) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM courses WHERE id=$1`, courseID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("load course: %w", err)
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, fmt.Errorf("unmarshal course: %w", err)
	}
	return course, nil
}

func (l *CourseLoader) LoadCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := []domain.Course{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		var course domain.Course
		if err := json.Unmarshal(raw, &course); err != nil {
			return nil, fmt.Errorf("unmarshal course: %w", err)
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

// SeedCourses upserts course documents in one batch.
func (l *CourseLoader) SeedCourses(ctx context.Context, courses []domain.Course) error {
	batch := &pgx.Batch{}
	for _, c := range courses {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal course %s: %w", c.ID, err)
		}
		batch.Queue(`INSERT INTO courses (id, data) VALUES ($1, $2::jsonb)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, c.ID, string(data))
	}
	br := l.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range courses {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed courses: %w", err)
		}
	}
	return nil
}
