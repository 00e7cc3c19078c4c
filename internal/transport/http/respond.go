package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"codemaster-service/internal/domain"
	"codemaster-service/internal/preview"
)

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody(err))
}

func errorBody(err error) errorPayload {
	return errorPayload{Message: err.Error(), Code: codeFor(err)}
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrCertificateNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, preview.ErrUnknownExample):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRetryNotAllowed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotSignedIn):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrIncompleteAnswers),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, preview.ErrUnknownBuffer),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("malformed request")

// codeFor gives clients a stable identifier they can branch on.
func codeFor(err error) string {
	codes := []struct {
		target error
		code   string
	}{
		{domain.ErrCourseNotFound, "course_not_found"},
		{domain.ErrLessonNotFound, "lesson_not_found"},
		{domain.ErrCertificateNotFound, "certificate_not_found"},
		{domain.ErrUserNotFound, "user_not_found"},
		{domain.ErrSessionNotFound, "session_not_found"},
		{domain.ErrUserExists, "user_exists"},
		{domain.ErrInvalidCredentials, "invalid_credentials"},
		{domain.ErrNotSignedIn, "not_signed_in"},
		{domain.ErrIncompleteAnswers, "incomplete_answers"},
		{domain.ErrAlreadySubmitted, "already_submitted"},
		{domain.ErrRetryNotAllowed, "retry_not_allowed"},
		{domain.ErrInvalidTransition, "invalid_transition"},
		{domain.ErrQuestionNotFound, "question_not_found"},
		{domain.ErrOptionNotFound, "option_not_found"},
		{preview.ErrUnknownBuffer, "unknown_buffer"},
		{preview.ErrUnknownExample, "unknown_example"},
		{errBadRequest, "bad_request"},
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return ""
}
