package repository

import (
	"errors"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type SubCourseRepository struct {
	DB *gorm.DB
}

func NewSubCourseRepository(db *gorm.DB) *SubCourseRepository {
	return &SubCourseRepository{DB: db}
}

// FindByID 未找到时返回 (nil, nil)
func (r *SubCourseRepository) FindByID(id uint) (*model.SubCourse, error) {
	var sc model.SubCourse
	err := r.DB.First(&sc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// FindOwned 校验单元所属课程归某个教师所有，否则返回 (nil, nil)
func (r *SubCourseRepository) FindOwned(id uint, teacherID string) (*model.SubCourse, error) {
	var sc model.SubCourse
	err := r.DB.
		Joins("JOIN courses ON courses.id = sub_courses.course_id").
		Where("sub_courses.id = ? AND courses.teacher_id = ?", id, teacherID).
		First(&sc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}
