package util

import "errors"

var (
	ErrSubCourseNotFound = errors.New("sub course not found")
	ErrNotQuizContent    = errors.New("sub course is not a quiz")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrPermissionDenied  = errors.New("permission denied")

	// startSession 前置条件
	ErrNotEnrolled           = errors.New("student not enrolled in course")
	ErrInsufficientQuestions = errors.New("not enough questions in the bank to start quiz")
	ErrAttemptLimitExceeded  = errors.New("maximum attempts reached")

	// 会话操作
	ErrSessionNotFound      = errors.New("quiz session not found")
	ErrSessionNotActive     = errors.New("quiz session not active")
	ErrSessionExpired       = errors.New("quiz session has expired")
	ErrQuestionNotInSession = errors.New("question not part of this session")
	ErrInvalidOption        = errors.New("selected answer must be A, B, C, or D")

	ErrResultNotFound = errors.New("quiz result not found")
)
