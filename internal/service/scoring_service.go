package service

import (
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
)

// ScoringService 把一次测验成绩换算成学习单元进度。
// 源策略：任意完成的尝试即判定单元完成（passing_score 0），且总用
// 最新一次成绩覆盖；两者均可通过配置调整。
type ScoringService struct {
	PassingScore  int
	KeepBestScore bool
}

func NewScoringService(cfg *config.Config) *ScoringService {
	return &ScoringService{
		PassingScore:  cfg.Quiz.PassingScore,
		KeepBestScore: cfg.Quiz.KeepBestScore,
	}
}

// ApplyResult 基于已有进度（可为 nil）计算更新后的进度记录。
// 纯计算，不落盘；持久化与成绩单写入同属一个事务，见 SessionStore.Finalize。
func (s *ScoringService) ApplyResult(existing *model.SubCourseProgress, studentID string, courseID, subCourseID uint, result *model.QuizResult, now time.Time) *model.SubCourseProgress {
	p := &model.SubCourseProgress{
		StudentID:   studentID,
		CourseID:    courseID,
		SubCourseID: subCourseID,
	}
	if existing != nil {
		*p = *existing
	}

	score := float64(result.FinalScore)
	if s.KeepBestScore && p.Score != nil && *p.Score > score {
		score = *p.Score
	}
	p.Score = &score

	p.Attempts++
	p.TimeSpentSeconds += result.TimeTakenMinutes * 60
	if p.StartedAt == nil {
		p.StartedAt = &now
	}
	p.LastAccessedAt = &now

	if result.FinalScore >= s.PassingScore {
		p.Status = model.ProgressCompleted
		p.CompletionPercentage = 100
		p.CompletedAt = &now
	} else if p.Status != model.ProgressCompleted {
		p.Status = model.ProgressInProgress
	}

	return p
}
