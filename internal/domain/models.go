package domain

import (
	"fmt"
	"time"
)

// OptionCount is the fixed number of options every question carries.
const OptionCount = 4

// PassThreshold is the minimum score that earns a certificate.
const PassThreshold = 75

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct" yaml:"correct"`
}

// Validate checks the fixed option count and the correct index.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: %s has %d options, want %d", ErrInvalidQuestion, q.ID, len(q.Options), OptionCount)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return fmt.Errorf("%w: %s correct index %d out of range", ErrInvalidQuestion, q.ID, q.CorrectIndex)
	}
	return nil
}

// StepType enumerates lesson content step kinds.
type StepType string

const (
	StepText  StepType = "text"
	StepCode  StepType = "code"
	StepVideo StepType = "video"
)

// Step is one content page of a lesson.
type Step struct {
	Type        StepType `json:"type" yaml:"type"`
	Title       string   `json:"title" yaml:"title"`
	Content     string   `json:"content" yaml:"content"`
	Language    string   `json:"language,omitempty" yaml:"language"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// LessonType enumerates lesson kinds.
type LessonType string

const (
	LessonText        LessonType = "text"
	LessonVideo       LessonType = "video"
	LessonInteractive LessonType = "interactive"
	LessonQuiz        LessonType = "quiz"
)

// Lesson is an ordered list of steps, optionally followed by a quiz.
type Lesson struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Type        LessonType `json:"type" yaml:"type"`
	Duration    string     `json:"duration,omitempty" yaml:"duration"`
	// Free lessons are open to visitors who are not signed in.
	Free  bool       `json:"free" yaml:"free"`
	Steps []Step     `json:"steps" yaml:"steps"`
	Quiz  []Question `json:"quiz,omitempty" yaml:"quiz"`
}

// IsQuiz reports whether the lesson ends in a quiz.
func (l Lesson) IsQuiz() bool {
	return l.Type == LessonQuiz
}

// Course is a catalog entry together with its lessons.
type Course struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Level       string   `json:"level" yaml:"level"`
	Duration    string   `json:"duration" yaml:"duration"`
	Students    int      `json:"students" yaml:"students"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Category    string   `json:"category" yaml:"category"`
	Instructor  string   `json:"instructor,omitempty" yaml:"instructor"`
	Lessons     []Lesson `json:"lessons" yaml:"lessons"`
}

// Lesson returns the lesson with the given id and its index.
func (c Course) Lesson(id string) (Lesson, int, error) {
	for i, l := range c.Lessons {
		if l.ID == id {
			return l, i, nil
		}
	}
	return Lesson{}, -1, ErrLessonNotFound
}

// NextLesson returns the lesson following id, if any.
func (c Course) NextLesson(id string) (Lesson, bool) {
	_, idx, err := c.Lesson(id)
	if err != nil || idx+1 >= len(c.Lessons) {
		return Lesson{}, false
	}
	return c.Lessons[idx+1], true
}

// Validate checks every quiz question of the course.
func (c Course) Validate() error {
	for _, l := range c.Lessons {
		if l.IsQuiz() && len(l.Quiz) == 0 {
			return fmt.Errorf("%w: lesson %s/%s has no questions", ErrInvalidQuestion, c.ID, l.ID)
		}
		for _, q := range l.Quiz {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("course %s lesson %s: %w", c.ID, l.ID, err)
			}
		}
	}
	return nil
}

// Certificate is issued once per passing quiz submission.
type Certificate struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"courseId"`
	CourseName string    `json:"courseName"`
	IssueDate  time.Time `json:"issueDate"`
	Score      int       `json:"score"`
}

// ProgressEntry is the persisted completion record of a single lesson.
type ProgressEntry struct {
	CourseID    string    `json:"courseId"`
	LessonID    string    `json:"lessonId"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completedAt"`
	Score       *int      `json:"score"`
}

// Progress maps courseId -> lessonId -> entry.
type Progress map[string]map[string]ProgressEntry

// Upsert stores entry under its (course, lesson) key, replacing any previous one.
func (p Progress) Upsert(entry ProgressEntry) {
	lessons, ok := p[entry.CourseID]
	if !ok {
		lessons = make(map[string]ProgressEntry)
		p[entry.CourseID] = lessons
	}
	lessons[entry.LessonID] = entry
}

// Entry returns the stored entry for (courseID, lessonID).
func (p Progress) Entry(courseID, lessonID string) (ProgressEntry, bool) {
	entry, ok := p[courseID][lessonID]
	return entry, ok
}

// CompletedLessons counts completed lessons of a course.
func (p Progress) CompletedLessons(courseID string) int {
	n := 0
	for _, e := range p[courseID] {
		if e.Completed {
			n++
		}
	}
	return n
}

// User is the learner record kept by the store.
type User struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Password       string        `json:"password,omitempty"`
	JoinedDate     time.Time     `json:"joinedDate"`
	Progress       Progress      `json:"progress"`
	Certifications []Certificate `json:"certifications"`
}

// Certificate looks up an issued certificate by id.
func (u User) Certificate(id string) (Certificate, error) {
	for _, c := range u.Certifications {
		if c.ID == id {
			return c, nil
		}
	}
	return Certificate{}, ErrCertificateNotFound
}

// Public strips the password before the record leaves the service.
func (u User) Public() User {
	u.Password = ""
	return u
}
