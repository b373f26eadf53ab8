package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// ListBySubCourse 按创建顺序返回题库，difficulty 非空时按难度过滤
func (r *QuestionRepository) ListBySubCourse(subCourseID uint, difficulty *model.Difficulty) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	q := r.DB.Where("sub_course_id = ?", subCourseID)
	if difficulty != nil {
		q = q.Where("difficulty = ?", *difficulty)
	}
	err := q.Order("id ASC").Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) FindByID(id uint) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) CountBySubCourse(subCourseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizQuestion{}).Where("sub_course_id = ?", subCourseID).Count(&count).Error
	return count, err
}

func (r *QuestionRepository) Create(q *model.QuizQuestion) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) Update(q *model.QuizQuestion) error {
	return r.DB.Save(q).Error
}

// Delete 软删除题目。已创建会话持有的是快照副本，不受删除影响。
func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.QuizQuestion{}, id).Error
}
