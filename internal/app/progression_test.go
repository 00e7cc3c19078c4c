package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemaster-service/internal/domain"
)

func quizLesson(steps int) domain.Lesson {
	opts := []string{"a", "b", "c", "d"}
	l := domain.Lesson{
		ID:   "quiz",
		Type: domain.LessonQuiz,
		Quiz: []domain.Question{
			{ID: "1", Options: opts, CorrectIndex: 0},
			{ID: "2", Options: opts, CorrectIndex: 0},
			{ID: "3", Options: opts, CorrectIndex: 2},
			{ID: "4", Options: opts, CorrectIndex: 0},
		},
	}
	for i := 0; i < steps; i++ {
		l.Steps = append(l.Steps, domain.Step{Type: domain.StepText, Title: "s"})
	}
	return l
}

func answerAll(t *testing.T, p *Progression, answers map[string]int) {
	t.Helper()
	for id, opt := range answers {
		require.NoError(t, p.Answer(id, opt))
	}
}

func TestProgressionPlainLessonCompletes(t *testing.T) {
	p := NewProgression(domain.Lesson{ID: "1", Type: domain.LessonInteractive, Steps: make([]domain.Step, 3)})
	require.Equal(t, PhaseViewing, p.Phase())

	require.NoError(t, p.Prev())
	assert.Equal(t, 0, p.Step(), "prev on the first step is a no-op")

	phase, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseViewing, phase)
	assert.Equal(t, 1, p.Step())

	require.NoError(t, p.Prev())
	assert.Equal(t, 0, p.Step())

	_, _ = p.Next()
	_, _ = p.Next()
	phase, err = p.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, phase)

	_, err = p.Next()
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestProgressionQuizLessonEntersQuizAfterSteps(t *testing.T) {
	p := NewProgression(quizLesson(2))
	require.Equal(t, PhaseViewing, p.Phase())
	assert.ErrorIs(t, p.Answer("1", 0), domain.ErrInvalidTransition)

	_, _ = p.Next()
	phase, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseQuizInProgress, phase)
}

func TestProgressionQuizWithoutStepsStartsInQuiz(t *testing.T) {
	p := NewProgression(quizLesson(0))
	assert.Equal(t, PhaseQuizInProgress, p.Phase())
}

func TestProgressionAnswerValidation(t *testing.T) {
	p := NewProgression(quizLesson(0))
	assert.ErrorIs(t, p.Answer("missing", 0), domain.ErrQuestionNotFound)
	assert.ErrorIs(t, p.Answer("1", 4), domain.ErrOptionNotFound)
	assert.ErrorIs(t, p.Answer("1", -1), domain.ErrOptionNotFound)

	require.NoError(t, p.Answer("1", 1))
	require.NoError(t, p.Answer("1", 0))
	assert.Equal(t, domain.AnswerSet{"1": 0}, p.Answers(), "answers overwrite per question")
}

func TestProgressionSubmitGating(t *testing.T) {
	p := NewProgression(quizLesson(0))
	answerAll(t, p, map[string]int{"1": 0, "2": 0, "3": 2})
	assert.False(t, p.CanSubmit())

	_, err := p.Submit()
	assert.ErrorIs(t, err, domain.ErrIncompleteAnswers)

	require.NoError(t, p.Answer("4", 1))
	require.True(t, p.CanSubmit())

	score, err := p.Submit()
	require.NoError(t, err)
	assert.Equal(t, 75, score)
	assert.True(t, p.Passed())
	assert.Equal(t, 1, p.Attempts())

	_, err = p.Submit()
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
	assert.Equal(t, 1, p.Attempts())
}

func TestProgressionPassShowsCertificateAndForbidsRetry(t *testing.T) {
	p := NewProgression(quizLesson(0))
	answerAll(t, p, map[string]int{"1": 0, "2": 0, "3": 2, "4": 0})
	score, err := p.Submit()
	require.NoError(t, err)
	require.Equal(t, 100, score)

	assert.ErrorIs(t, p.Retry(), domain.ErrRetryNotAllowed)
	require.NoError(t, p.ShowCertificate())
	assert.Equal(t, PhaseCertificateShown, p.Phase())
	require.NoError(t, p.ShowCertificate())

	_, err = p.Submit()
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
}

func TestProgressionFailOffersOnlyRetry(t *testing.T) {
	p := NewProgression(quizLesson(2))
	_, _ = p.Next()
	_, _ = p.Next()
	answerAll(t, p, map[string]int{"1": 0, "2": 0, "3": 1, "4": 1})

	score, err := p.Submit()
	require.NoError(t, err)
	require.Equal(t, 50, score)
	assert.False(t, p.Passed())
	assert.ErrorIs(t, p.ShowCertificate(), domain.ErrInvalidTransition)

	require.NoError(t, p.Retry())
	assert.Equal(t, PhaseQuizInProgress, p.Phase())
	assert.Equal(t, 0, p.Step())
	assert.Empty(t, p.Answers())
	assert.False(t, p.CanSubmit())

	_, err = p.Submit()
	assert.ErrorIs(t, err, domain.ErrIncompleteAnswers, "submit stays disabled until every question is re-answered")

	answerAll(t, p, map[string]int{"1": 0, "2": 0, "3": 2, "4": 0})
	score, err = p.Submit()
	require.NoError(t, err)
	assert.Equal(t, 100, score)
	assert.Equal(t, 2, p.Attempts())
}

func TestPhaseMarshalText(t *testing.T) {
	b, err := PhaseQuizResult.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "quizResult", string(b))
}
