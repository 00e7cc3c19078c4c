package app

import (
	"sync"
	"time"

	"codemaster-service/internal/domain"
)

// Ref identifies a lesson session: one learner inside one lesson.
// UserID is empty for anonymous viewers.
type Ref struct {
	UserID   string
	CourseID string
	LessonID string
}

// Key is the session registry key.
func (r Ref) Key() string {
	return r.UserID + "/" + r.CourseID + "/" + r.LessonID
}

// EventType names the messages pushed to session subscribers.
type EventType string

const (
	EventState    EventType = "state"
	EventNavigate EventType = "navigate"
)

// Event is pushed to subscribers on every state change and on scheduled
// auto-advance.
type Event struct {
	Type     EventType `json:"type"`
	State    Snapshot  `json:"state"`
	Navigate string    `json:"navigate,omitempty"`
}

// Snapshot is the derived view of a session.
type Snapshot struct {
	CourseID      string           `json:"courseId"`
	CourseTitle   string           `json:"courseTitle"`
	LessonID      string           `json:"lessonId"`
	LessonTitle   string           `json:"lessonTitle"`
	LessonIndex   int              `json:"lessonIndex"`
	LessonCount   int              `json:"lessonCount"`
	Phase         Phase            `json:"phase"`
	Step          int              `json:"step"`
	StepCount     int              `json:"stepCount"`
	Content       *RenderedStep    `json:"content,omitempty"`
	Questions     []QuestionView   `json:"questions,omitempty"`
	Answers       domain.AnswerSet `json:"answers"`
	Answered      int              `json:"answered"`
	CanSubmit     bool             `json:"canSubmit"`
	Score         *int             `json:"score,omitempty"`
	Passed        bool             `json:"passed"`
	Attempts      int              `json:"attempts"`
	CertificateID string           `json:"certificateId,omitempty"`
	NextLessonID  string           `json:"nextLessonId,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// QuestionView hides the correct index from clients.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// RenderedStep is a content step with its body rendered to HTML.
type RenderedStep struct {
	domain.Step
	HTML string `json:"html"`
}

// StepRenderer turns a content step into HTML.
type StepRenderer interface {
	Render(step domain.Step) (string, error)
}

// Session is the in-memory state of one lesson walk-through, shared by every
// connection the learner has open on that lesson.
type Session struct {
	course        domain.Course
	lesson        domain.Lesson
	lessonIndex   int
	renderer      StepRenderer
	now           func() time.Time
	mu            sync.RWMutex
	progression   *Progression
	participants  int
	subscribers   map[chan Event]struct{}
	tasks         *Scheduler
	certificateID string
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(ref Ref, course domain.Course, renderer StepRenderer) (*Session, error) {
	return newSessionWithClock(ref, course, renderer, time.Now)
}

func newSessionWithClock(ref Ref, course domain.Course, renderer StepRenderer, now func() time.Time) (*Session, error) {
	lesson, idx, err := course.Lesson(ref.LessonID)
	if err != nil {
		return nil, err
	}
	return &Session{
		course:      course,
		lesson:      lesson,
		lessonIndex: idx,
		renderer:    renderer,
		now:         now,
		progression: NewProgression(lesson),
		subscribers: make(map[chan Event]struct{}),
		tasks:       NewScheduler(),
	}, nil
}

// Join adds a participant and returns the current state. Session stores call
// it under their own lock so a joining viewer cannot race the removal of an
// empty session.
func (s *Session) Join() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participants == 0 {
		// The previous scheduler was closed when the last participant left.
		s.tasks = NewScheduler()
	}
	s.participants++
	return s.snapshotLocked()
}

// Leave drops one participant and reports whether the session is now empty.
// The last one out cancels pending tasks and closes every subscription.
func (s *Session) Leave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participants > 0 {
		s.participants--
	}
	if s.participants > 0 {
		return false
	}
	s.tasks.Close()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	return true
}

// apply runs fn against the progression and broadcasts the resulting state.
// fn runs with s.mu held, so side effects inside it are ordered with the
// transition.
func (s *Session) apply(fn func(p *Progression) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.progression); err != nil {
		return s.snapshotLocked(), err
	}
	return s.broadcastLocked(Event{Type: EventState}), nil
}

// schedule runs fn after delay unless the session empties first.
func (s *Session) schedule(delay time.Duration, fn func()) *Task {
	s.mu.RLock()
	tasks := s.tasks
	s.mu.RUnlock()
	return tasks.Schedule(delay, fn)
}

func (s *Session) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	// The channel is new and buffered, so the send cannot block while the
	// lock is held.
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- Event{Type: EventState, State: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(ev)
}

func (s *Session) broadcastLocked(ev Event) Snapshot {
	ev.State = s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest update so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return ev.State
}

func (s *Session) snapshotLocked() Snapshot {
	p := s.progression
	snap := Snapshot{
		CourseID:      s.course.ID,
		CourseTitle:   s.course.Title,
		LessonID:      s.lesson.ID,
		LessonTitle:   s.lesson.Title,
		LessonIndex:   s.lessonIndex,
		LessonCount:   len(s.course.Lessons),
		Phase:         p.Phase(),
		Step:          p.Step(),
		StepCount:     len(s.lesson.Steps),
		Answers:       p.Answers(),
		CanSubmit:     p.CanSubmit(),
		Passed:        p.Passed(),
		Attempts:      p.Attempts(),
		CertificateID: s.certificateID,
		UpdatedAt:     s.now(),
	}
	snap.Answered = len(snap.Answers)
	if next, ok := s.course.NextLesson(s.lesson.ID); ok {
		snap.NextLessonID = next.ID
	}

	switch p.Phase() {
	case PhaseViewing:
		if p.Step() < len(s.lesson.Steps) {
			snap.Content = s.renderStepLocked(s.lesson.Steps[p.Step()])
		}
	case PhaseQuizInProgress:
		snap.Questions = questionViews(s.lesson.Quiz)
	case PhaseQuizResult, PhaseCertificateShown:
		score := p.Score()
		snap.Score = &score
	}
	return snap
}

func (s *Session) renderStepLocked(step domain.Step) *RenderedStep {
	out := &RenderedStep{Step: step}
	if s.renderer == nil {
		return out
	}
	html, err := s.renderer.Render(step)
	if err != nil {
		// Fall back to the raw step; clients still get title and content.
		return out
	}
	out.HTML = html
	return out
}

func questionViews(questions []domain.Question) []QuestionView {
	out := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options})
	}
	return out
}
