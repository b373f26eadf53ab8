package repository

import (
	"errors"

	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository struct {
	DB *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{DB: db}
}

// GetBySubCourse 未配置时返回 (nil, nil)，默认值由服务层补齐
func (r *SettingsRepository) GetBySubCourse(subCourseID uint) (*model.QuizSettings, error) {
	var s model.QuizSettings
	err := r.DB.Where("sub_course_id = ?", subCourseID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) Upsert(s *model.QuizSettings) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sub_course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_questions_in_pool",
			"questions_per_attempt",
			"time_limit_minutes",
			"max_attempts",
			"shuffle_questions",
			"shuffle_options",
			"show_results_immediately",
			"updated_at",
		}),
	}).Create(s).Error
}
