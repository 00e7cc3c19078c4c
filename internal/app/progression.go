package app

import (
	"fmt"

	"codemaster-service/internal/domain"
)

// Phase is the current state of a lesson walk-through.
type Phase int

const (
	PhaseViewing          Phase = iota // Showing content step Step
	PhaseCompleted                     // Non-quiz lesson finished
	PhaseQuizInProgress                // Collecting answers
	PhaseQuizResult                    // Attempt scored
	PhaseCertificateShown              // Passed and certificate revealed
)

func (p Phase) String() string {
	switch p {
	case PhaseViewing:
		return "viewing"
	case PhaseCompleted:
		return "completed"
	case PhaseQuizInProgress:
		return "quizInProgress"
	case PhaseQuizResult:
		return "quizResult"
	case PhaseCertificateShown:
		return "certificateShown"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText lets phases appear by name in JSON snapshots.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Progression walks one lesson: content steps, then the quiz for quiz lessons.
// It is not safe for concurrent use; Session serializes access.
type Progression struct {
	lesson   domain.Lesson
	phase    Phase
	step     int
	answers  domain.AnswerSet
	score    int
	attempts int
}

// NewProgression starts a lesson at its first step. A quiz lesson without
// content steps starts directly in the quiz.
func NewProgression(lesson domain.Lesson) *Progression {
	p := &Progression{
		lesson:  lesson,
		answers: make(domain.AnswerSet),
	}
	if len(lesson.Steps) == 0 && lesson.IsQuiz() {
		p.phase = PhaseQuizInProgress
	}
	return p
}

func (p *Progression) Phase() Phase { return p.phase }

func (p *Progression) Step() int { return p.step }

func (p *Progression) Score() int { return p.score }

// Attempts counts submitted attempts in this session.
func (p *Progression) Attempts() int { return p.attempts }

func (p *Progression) Answers() domain.AnswerSet { return p.answers.Clone() }

// Next advances one step. From the last step it moves to Completed for plain
// lessons or to QuizInProgress for quiz lessons.
func (p *Progression) Next() (Phase, error) {
	if p.phase != PhaseViewing {
		return p.phase, fmt.Errorf("%w: next from %s", domain.ErrInvalidTransition, p.phase)
	}
	if p.step < len(p.lesson.Steps)-1 {
		p.step++
		return p.phase, nil
	}
	if p.lesson.IsQuiz() {
		p.phase = PhaseQuizInProgress
	} else {
		p.phase = PhaseCompleted
	}
	return p.phase, nil
}

// Prev moves back one content step; it is a no-op on the first step.
func (p *Progression) Prev() error {
	if p.phase != PhaseViewing {
		return fmt.Errorf("%w: prev from %s", domain.ErrInvalidTransition, p.phase)
	}
	if p.step > 0 {
		p.step--
	}
	return nil
}

// Answer records (or overwrites) the option chosen for a question.
func (p *Progression) Answer(questionID string, option int) error {
	if p.phase != PhaseQuizInProgress {
		return fmt.Errorf("%w: answer from %s", domain.ErrInvalidTransition, p.phase)
	}
	if !p.hasQuestion(questionID) {
		return domain.ErrQuestionNotFound
	}
	if option < 0 || option >= domain.OptionCount {
		return domain.ErrOptionNotFound
	}
	p.answers[questionID] = option
	return nil
}

// CanSubmit is true only while the quiz is open and fully answered.
func (p *Progression) CanSubmit() bool {
	return p.phase == PhaseQuizInProgress && p.answers.Covers(p.lesson.Quiz)
}

// Submit scores the current attempt and moves to QuizResult.
func (p *Progression) Submit() (int, error) {
	switch {
	case p.phase == PhaseQuizResult || p.phase == PhaseCertificateShown:
		return p.score, domain.ErrAlreadySubmitted
	case p.phase != PhaseQuizInProgress:
		return 0, fmt.Errorf("%w: submit from %s", domain.ErrInvalidTransition, p.phase)
	case !p.CanSubmit():
		return 0, domain.ErrIncompleteAnswers
	}
	p.score = domain.Score(p.lesson.Quiz, p.answers)
	p.attempts++
	p.phase = PhaseQuizResult
	return p.score, nil
}

// Passed reports whether the scored attempt reached the pass threshold.
func (p *Progression) Passed() bool {
	return (p.phase == PhaseQuizResult || p.phase == PhaseCertificateShown) && domain.Passed(p.score)
}

// ShowCertificate reveals the certificate of a passed attempt. Calling it
// again once shown is a no-op.
func (p *Progression) ShowCertificate() error {
	if p.phase == PhaseCertificateShown {
		return nil
	}
	if p.phase != PhaseQuizResult || !domain.Passed(p.score) {
		return fmt.Errorf("%w: certificate from %s", domain.ErrInvalidTransition, p.phase)
	}
	p.phase = PhaseCertificateShown
	return nil
}

// Retry clears all answers and the step index after a failed attempt. It
// returns to the quiz rather than to the content steps.
func (p *Progression) Retry() error {
	if p.phase != PhaseQuizResult {
		return fmt.Errorf("%w: retry from %s", domain.ErrInvalidTransition, p.phase)
	}
	if domain.Passed(p.score) {
		return domain.ErrRetryNotAllowed
	}
	p.answers = make(domain.AnswerSet)
	p.step = 0
	p.score = 0
	p.phase = PhaseQuizInProgress
	return nil
}

func (p *Progression) hasQuestion(id string) bool {
	for _, q := range p.lesson.Quiz {
		if q.ID == id {
			return true
		}
	}
	return false
}
