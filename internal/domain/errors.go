package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a lesson session has not been opened.
	ErrSessionNotFound = errors.New("lesson session not found")
	// ErrCourseNotFound indicates the course content could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrLessonNotFound indicates the lesson id is not part of the course.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrQuestionNotFound indicates an answered question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidQuestion is returned by Question.Validate.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrInvalidTransition is returned when an event is not accepted in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrIncompleteAnswers is returned when submit is attempted before every question is answered.
	ErrIncompleteAnswers = errors.New("not all questions answered")
	// ErrAlreadySubmitted guards the single terminal submit of an attempt.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrRetryNotAllowed is returned when retrying a passed quiz.
	ErrRetryNotAllowed = errors.New("retry only allowed after a failed attempt")

	// ErrUserExists is returned on duplicate registration.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a user id or email is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotSignedIn is returned when an operation needs an active user.
	ErrNotSignedIn = errors.New("no active user")
	// ErrCertificateNotFound is returned when a certificate id is unknown for the user.
	ErrCertificateNotFound = errors.New("certificate not found")
)
