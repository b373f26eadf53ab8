package repository

import (
	"errors"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

// FindBySession 未找到时返回 (nil, nil)
func (r *ResultRepository) FindBySession(sessionID uint) (*model.QuizResult, error) {
	var res model.QuizResult
	err := r.DB.Where("session_id = ?", sessionID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ResultRepository) ListByStudentAndSubCourse(studentID string, subCourseID uint) ([]model.QuizResult, error) {
	var results []model.QuizResult
	err := r.DB.
		Where("student_id = ? AND sub_course_id = ?", studentID, subCourseID).
		Order("attempt_number DESC").
		Find(&results).Error
	return results, err
}

func (r *ResultRepository) ListBySubCourse(subCourseID uint) ([]model.QuizResult, error) {
	var results []model.QuizResult
	err := r.DB.
		Where("sub_course_id = ?", subCourseID).
		Order("completed_at DESC").
		Find(&results).Error
	return results, err
}
