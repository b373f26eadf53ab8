package service

import "lms_backend/internal/model"

// 存储访问通过接口注入，便于单元测试用内存实现替换。
// gorm 实现位于 internal/repository。

type SubCourseStore interface {
	FindByID(id uint) (*model.SubCourse, error)
}

type QuestionStore interface {
	ListBySubCourse(subCourseID uint, difficulty *model.Difficulty) ([]model.QuizQuestion, error)
	FindByID(id uint) (*model.QuizQuestion, error)
}

type SettingsStore interface {
	// 未配置时返回 (nil, nil)
	GetBySubCourse(subCourseID uint) (*model.QuizSettings, error)
}

type EnrollmentStore interface {
	IsEnrolled(studentID string, courseID uint) (bool, error)
}

type ProgressStore interface {
	// 未找到时返回 (nil, nil)
	Find(studentID string, courseID, subCourseID uint) (*model.SubCourseProgress, error)
}

type SessionStore interface {
	Create(s *model.QuizSession) error
	// 未找到时返回 (nil, nil)
	FindByToken(token string) (*model.QuizSession, error)
	LastAttemptNumber(studentID string, subCourseID uint) (int, error)
	CountAttempts(studentID string, subCourseID uint) (int64, error)
	UpsertAnswer(a *model.QuizAnswer) error
	AnswersBySession(sessionID uint) ([]model.QuizAnswer, error)
	// Finalize 原子落盘：终态会话 + 空白作答 + 成绩单 + 进度，全部成功或全部回滚
	Finalize(s *model.QuizSession, blanks []model.QuizAnswer, result *model.QuizResult, progress *model.SubCourseProgress) error
}

type ResultStore interface {
	// 未找到时返回 (nil, nil)
	FindBySession(sessionID uint) (*model.QuizResult, error)
	ListByStudentAndSubCourse(studentID string, subCourseID uint) ([]model.QuizResult, error)
}
