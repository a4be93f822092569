package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These errors classify pipeline failures. Callers wrap them with context and
// match them with errors.Is / errors.As.
// -----------------------------------------------------------------------------

// Input errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Exercise errors
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrTrackNotFound    = errors.New("track not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrConceptNotFound  = errors.New("concept not found")
)

// Judge errors
var (
	ErrJudgeUnavailable = errors.New("judge unavailable")
	ErrJudgeProtocol    = errors.New("judge protocol error")
)

// Persistence errors
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrQueueUnavailable   = errors.New("queue unavailable")
)

// UnsupportedLanguageError is returned when a language ID cannot be graded.
// It matches both ErrUnsupportedLanguage and ErrInvalidInput.
type UnsupportedLanguageError struct {
	ID        int
	Name      string // set when the ID is known but has no assembler
	Supported []int
}

func (e *UnsupportedLanguageError) Error() string {
	ids := make([]string, len(e.Supported))
	for i, id := range e.Supported {
		ids[i] = strconv.Itoa(id)
	}
	if e.Name != "" {
		return fmt.Sprintf("language %s (ID %d) is not yet supported for graded submissions. Supported IDs: %s",
			e.Name, e.ID, strings.Join(ids, ", "))
	}
	return fmt.Sprintf("language ID %d not supported. Supported IDs: %s", e.ID, strings.Join(ids, ", "))
}

// Is reports whether target is one of the sentinels this error stands for.
func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage || target == ErrInvalidInput
}

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
