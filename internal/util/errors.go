package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrTestNotPublished     = errors.New("test not published or not accessible")
	ErrTestAlreadySubmitted = errors.New("test already submitted")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAlreadySubmitted     = errors.New("answers already submitted")
	ErrNotEnrolled          = errors.New("not enrolled in this course")
)
