package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied indicates the student is not enrolled in a paid lecture.
	ErrAccessDenied = errors.New("lecture access requires enrollment")
	// ErrNotEnrolled is returned when progress is reported for a lecture the
	// student never enrolled in.
	ErrNotEnrolled = errors.New("student is not enrolled in this lecture")
	// ErrAttemptsExhausted means the student used every allowed quiz attempt.
	ErrAttemptsExhausted = errors.New("maximum number of attempts reached")
	// ErrInvalidCode covers unknown and already used activation codes.
	ErrInvalidCode = errors.New("invalid or already used activation code")
	// ErrOrderNotPending is returned when an admin decision targets an order
	// that has already left the pending state.
	ErrOrderNotPending = errors.New("payment order is not pending")
	// ErrAlreadyEnrolled prevents ordering a lecture the student already has.
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this lecture")
	// ErrLectureIsFree prevents payment orders for free lectures.
	ErrLectureIsFree      = errors.New("lecture is free")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPhoneTaken         = errors.New("phone number is already registered")
)

var errValidation = errors.New("service: validation error")

type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func (e *validationError) Unwrap() error {
	return errValidation
}

func newValidationError(format string, args ...interface{}) error {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		message = "invalid input"
	}
	return &validationError{message: message}
}

// IsValidationError reports whether the provided error indicates invalid user input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errValidation)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
