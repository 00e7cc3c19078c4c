package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"codemaster-service/internal/domain"
	"codemaster-service/internal/logger"
)

// SessionRepository abstracts where lesson sessions live (in-memory, Redis-marked, etc).
// Join and Leave must run Session.Join and Session.Leave under the same lock
// that guards the registry.
type SessionRepository interface {
	// Join creates the session if needed and adds a participant to it.
	Join(key string, create func() (*Session, error)) (*Session, Snapshot, error)
	Get(key string) (*Session, bool)
	// Leave drops a participant and reports whether the session was removed.
	Leave(key string) bool
}

// CourseRepository loads course content (from cache/backing store).
type CourseRepository interface {
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
}

// UserStore persists learner records with keyed operations.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpsertProgress(ctx context.Context, userID string, entry domain.ProgressEntry) error
	AppendCertificate(ctx context.Context, userID string, cert domain.Certificate) error
	ActiveUser(ctx context.Context) (string, error)
	SetActiveUser(ctx context.Context, userID string) error
	ClearActiveUser(ctx context.Context) error
}

const (
	DefaultAdvanceDelay = time.Second
	DefaultRevealDelay  = 2 * time.Second
)

// Option customizes a LessonService.
type Option func(*LessonService)

// WithDelays sets the auto-advance and certificate reveal delays.
func WithDelays(advance, reveal time.Duration) Option {
	return func(s *LessonService) {
		s.advanceDelay = advance
		s.revealDelay = reveal
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LessonService) { s.now = now }
}

// WithRenderer sets the renderer used for content steps.
func WithRenderer(r StepRenderer) Option {
	return func(s *LessonService) { s.renderer = r }
}

// LessonService contains the lesson and quiz use cases.
type LessonService struct {
	sessions     SessionRepository
	courses      CourseRepository
	users        UserStore
	renderer     StepRenderer
	log          *logger.Logger
	advanceDelay time.Duration
	revealDelay  time.Duration
	now          func() time.Time
	newID        func() string
}

func NewLessonService(sessions SessionRepository, courses CourseRepository, users UserStore, log *logger.Logger, opts ...Option) *LessonService {
	s := &LessonService{
		sessions:     sessions,
		courses:      courses,
		users:        users,
		log:          log.With("component", "lesson_service"),
		advanceDelay: DefaultAdvanceDelay,
		revealDelay:  DefaultRevealDelay,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open registers a viewer on a lesson and returns the current state.
func (s *LessonService) Open(ctx context.Context, ref Ref) (Snapshot, error) {
	// Users cannot open lessons of unknown courses.
	course, err := s.courses.GetCourse(ctx, ref.CourseID)
	if err != nil {
		return Snapshot{}, err
	}
	lesson, _, err := course.Lesson(ref.LessonID)
	if err != nil {
		return Snapshot{}, err
	}
	if !lesson.Free && ref.UserID == "" {
		return Snapshot{}, domain.ErrNotSignedIn
	}

	_, snap, err := s.sessions.Join(ref.Key(), func() (*Session, error) {
		return newSessionWithClock(ref, course, s.renderer, s.now)
	})
	if err != nil {
		return Snapshot{}, err
	}

	if !lesson.IsQuiz() {
		s.markStarted(ctx, ref)
	}
	return snap, nil
}

// Next advances the lesson. Finishing a plain lesson persists completion and
// schedules the auto-advance to the following lesson.
func (s *LessonService) Next(ctx context.Context, ref Ref) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	completed := false
	snap, err := session.apply(func(p *Progression) error {
		phase, err := p.Next()
		if err != nil {
			return err
		}
		if phase == PhaseCompleted {
			completed = true
			s.persistProgress(ctx, ref, nil)
		}
		return nil
	})
	if err != nil {
		return snap, err
	}

	if completed && snap.NextLessonID != "" {
		next := snap.NextLessonID
		session.schedule(s.advanceDelay, func() {
			session.publish(Event{Type: EventNavigate, Navigate: next})
		})
	}
	return snap, nil
}

// Prev moves back one content step.
func (s *LessonService) Prev(_ context.Context, ref Ref) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.apply(func(p *Progression) error { return p.Prev() })
}

// Answer records the option selected for a question of the current attempt.
func (s *LessonService) Answer(_ context.Context, ref Ref, questionID string, option int) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.apply(func(p *Progression) error { return p.Answer(questionID, option) })
}

// Submit scores the attempt, persists the lesson result and, on a pass,
// appends exactly one certificate and schedules its reveal.
func (s *LessonService) Submit(ctx context.Context, ref Ref) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	passed := false
	snap, err := session.apply(func(p *Progression) error {
		score, err := p.Submit()
		if err != nil {
			return err
		}
		s.log.Info("quiz submitted",
			"course_id", ref.CourseID, "lesson_id", ref.LessonID,
			"score", score, "attempt", p.Attempts())

		s.persistProgress(ctx, ref, &score)
		if !domain.Passed(score) {
			return nil
		}
		passed = true
		// Called with session.mu held.
		session.certificateID = s.issueCertificate(ctx, ref, session.course, score)
		return nil
	})
	if err != nil {
		return snap, err
	}

	if passed {
		session.schedule(s.revealDelay, func() {
			_, _ = session.apply(func(p *Progression) error { return p.ShowCertificate() })
		})
	}
	return snap, nil
}

// ShowCertificate reveals the certificate of a passed attempt immediately.
func (s *LessonService) ShowCertificate(_ context.Context, ref Ref) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.apply(func(p *Progression) error { return p.ShowCertificate() })
}

// Retry resets a failed attempt back to an empty quiz.
func (s *LessonService) Retry(_ context.Context, ref Ref) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.apply(func(p *Progression) error { return p.Retry() })
}

// State returns the current snapshot without changing it.
func (s *LessonService) State(_ context.Context, ref Ref) (Snapshot, error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Subscribe returns a channel that receives state and navigation events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *LessonService) Subscribe(_ context.Context, ref Ref) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(ref.Key())
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave removes a viewer; the last one out cancels pending scheduled tasks
// and drops the session.
func (s *LessonService) Leave(_ context.Context, ref Ref) {
	if s.sessions.Leave(ref.Key()) {
		s.log.Debug("lesson session closed", "session", ref.Key())
	}
}

// markStarted records an opened lesson without downgrading a completed one.
func (s *LessonService) markStarted(ctx context.Context, ref Ref) {
	if ref.UserID == "" {
		return
	}
	user, err := s.users.GetUser(ctx, ref.UserID)
	if err != nil {
		s.log.Warn("load user for progress", "user_id", ref.UserID, "error", err)
		return
	}
	if entry, ok := user.Progress.Entry(ref.CourseID, ref.LessonID); ok && entry.Completed {
		return
	}
	if err := s.users.UpsertProgress(ctx, ref.UserID, domain.ProgressEntry{
		CourseID: ref.CourseID,
		LessonID: ref.LessonID,
	}); err != nil {
		s.log.Warn("progress not persisted", "user_id", ref.UserID, "error", err)
	}
}

// persistProgress is best-effort: failures are logged and the session keeps going.
func (s *LessonService) persistProgress(ctx context.Context, ref Ref, score *int) {
	if ref.UserID == "" {
		return
	}
	entry := domain.ProgressEntry{
		CourseID:    ref.CourseID,
		LessonID:    ref.LessonID,
		Completed:   true,
		CompletedAt: s.now().UTC(),
		Score:       score,
	}
	if err := s.users.UpsertProgress(ctx, ref.UserID, entry); err != nil {
		s.log.Warn("progress not persisted",
			"user_id", ref.UserID, "course_id", ref.CourseID, "lesson_id", ref.LessonID, "error", err)
	}
}

func (s *LessonService) issueCertificate(ctx context.Context, ref Ref, course domain.Course, score int) string {
	if ref.UserID == "" {
		return ""
	}
	cert := domain.Certificate{
		ID:         fmt.Sprintf("cert-%s-%s", course.ID, s.newID()),
		CourseID:   course.ID,
		CourseName: course.Title,
		IssueDate:  s.now().UTC(),
		Score:      score,
	}
	if err := s.users.AppendCertificate(ctx, ref.UserID, cert); err != nil {
		s.log.Warn("certificate not persisted", "user_id", ref.UserID, "course_id", course.ID, "error", err)
		return ""
	}
	s.log.Info("certificate issued", "user_id", ref.UserID, "certificate_id", cert.ID, "score", score)
	return cert.ID
}
