package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"codemaster-service/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	activeUserKey = "active_user"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID         string    `bun:"id,pk"`
	Name       string    `bun:"name,notnull"`
	Email      string    `bun:"email,notnull"`
	Password   string    `bun:"password,notnull"`
	JoinedDate time.Time `bun:"joined_date,notnull"`
}

type progressRow struct {
	bun.BaseModel `bun:"table:progress"`

	UserID      string    `bun:"user_id,pk"`
	CourseID    string    `bun:"course_id,pk"`
	LessonID    string    `bun:"lesson_id,pk"`
	Completed   bool      `bun:"completed,notnull"`
	CompletedAt time.Time `bun:"completed_at,nullzero"`
	Score       *int      `bun:"score"`
}

type certificateRow struct {
	bun.BaseModel `bun:"table:certificates"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	CourseID   string    `bun:"course_id,notnull"`
	CourseName string    `bun:"course_name,notnull"`
	IssueDate  time.Time `bun:"issue_date,notnull"`
	Score      int       `bun:"score,notnull"`
}

type metaRow struct {
	bun.BaseModel `bun:"table:meta"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// UserStore persists learners in Postgres through bun. Progress is one row per
// (user, course, lesson) so upserts are single-row statements.
type UserStore struct {
	db *bun.DB
}

// OpenDB opens a bun handle over pgdriver for the given DSN.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	row := userRow{
		ID:         user.ID,
		Name:       user.Name,
		Email:      normalizeEmail(user.Email),
		Password:   user.Password,
		JoinedDate: user.JoinedDate,
	}
	if row.JoinedDate.IsZero() {
		row.JoinedDate = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if hasCode(err, codeUniqueViolation) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	return s.hydrate(ctx, row, err)
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("email = ?", normalizeEmail(email)).Scan(ctx)
	return s.hydrate(ctx, row, err)
}

func (s *UserStore) UpsertProgress(ctx context.Context, userID string, entry domain.ProgressEntry) error {
	row := progressRow{
		UserID:      userID,
		CourseID:    entry.CourseID,
		LessonID:    entry.LessonID,
		Completed:   entry.Completed,
		CompletedAt: entry.CompletedAt,
		Score:       entry.Score,
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (user_id, course_id, lesson_id) DO UPDATE").
		Set("completed = EXCLUDED.completed").
		Set("completed_at = EXCLUDED.completed_at").
		Set("score = EXCLUDED.score").
		Exec(ctx)
	if hasCode(err, codeForeignKeyViolation) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *UserStore) AppendCertificate(ctx context.Context, userID string, cert domain.Certificate) error {
	row := certificateRow{
		ID:         cert.ID,
		UserID:     userID,
		CourseID:   cert.CourseID,
		CourseName: cert.CourseName,
		IssueDate:  cert.IssueDate,
		Score:      cert.Score,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if hasCode(err, codeForeignKeyViolation) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *UserStore) ActiveUser(ctx context.Context) (string, error) {
	var row metaRow
	err := s.db.NewSelect().Model(&row).Where("key = ?", activeUserKey).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load active user: %w", err)
	}
	return row.Value, nil
}

func (s *UserStore) SetActiveUser(ctx context.Context, userID string) error {
	exists, err := s.db.NewSelect().Model((*userRow)(nil)).Where("id = ?", userID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	row := metaRow{Key: activeUserKey, Value: userID}
	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (s *UserStore) ClearActiveUser(ctx context.Context) error {
	_, err := s.db.NewDelete().Model((*metaRow)(nil)).Where("key = ?", activeUserKey).Exec(ctx)
	return err
}

func (s *UserStore) hydrate(ctx context.Context, row userRow, err error) (domain.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}

	var progress []progressRow
	if err := s.db.NewSelect().Model(&progress).Where("user_id = ?", row.ID).Scan(ctx); err != nil {
		return domain.User{}, fmt.Errorf("load progress: %w", err)
	}
	var certs []certificateRow
	if err := s.db.NewSelect().Model(&certs).Where("user_id = ?", row.ID).Order("issue_date ASC").Scan(ctx); err != nil {
		return domain.User{}, fmt.Errorf("load certificates: %w", err)
	}

	user := domain.User{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		Password:       row.Password,
		JoinedDate:     row.JoinedDate,
		Progress:       domain.Progress{},
		Certifications: make([]domain.Certificate, 0, len(certs)),
	}
	for _, p := range progress {
		user.Progress.Upsert(domain.ProgressEntry{
			CourseID:    p.CourseID,
			LessonID:    p.LessonID,
			Completed:   p.Completed,
			CompletedAt: p.CompletedAt,
			Score:       p.Score,
		})
	}
	for _, c := range certs {
		user.Certifications = append(user.Certifications, domain.Certificate{
			ID:         c.ID,
			CourseID:   c.CourseID,
			CourseName: c.CourseName,
			IssueDate:  c.IssueDate,
			Score:      c.Score,
		})
	}
	return user, nil
}

func hasCode(err error, code string) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == code
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
