package model

import "time"

// QuizResult 会话终结时一次性写入的成绩单，session 上唯一
// swagger:model QuizResult
type QuizResult struct {
	BaseModel
	SessionID        uint      `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"sessionId"`
	StudentID        string    `gorm:"index;type:varchar(36);not null" json:"studentId"`
	SubCourseID      uint      `gorm:"index;type:bigint unsigned;not null" json:"subCourseId"`
	TotalQuestions   int       `gorm:"not null" json:"totalQuestions"`
	CorrectAnswers   int       `gorm:"not null;default:0" json:"correctAnswers"`
	FinalScore       int       `gorm:"not null;default:0" json:"finalScore"` // 百分制 0-100
	TimeTakenMinutes int       `json:"timeTakenMinutes"`
	AttemptNumber    int       `gorm:"not null" json:"attemptNumber"`
	CompletedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"completedAt"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}
