package repository

import (
	"errors"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Find 未找到时返回 (nil, nil)
func (r *ProgressRepository) Find(studentID string, courseID, subCourseID uint) (*model.SubCourseProgress, error) {
	var p model.SubCourseProgress
	err := r.DB.
		Where("student_id = ? AND course_id = ? AND sub_course_id = ?", studentID, courseID, subCourseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) ListByStudentAndCourse(studentID string, courseID uint) ([]model.SubCourseProgress, error) {
	var list []model.SubCourseProgress
	err := r.DB.
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Find(&list).Error
	return list, err
}
