package model

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// SubCourseProgress 学生在某个学习单元上的进度，(student, course, sub_course) 唯一
// swagger:model SubCourseProgress
type SubCourseProgress struct {
	BaseModel
	StudentID            string         `gorm:"type:varchar(36);not null;uniqueIndex:uq_subcourse_progress,priority:1" json:"studentId"`
	CourseID             uint           `gorm:"type:bigint unsigned;not null;uniqueIndex:uq_subcourse_progress,priority:2" json:"courseId"`
	SubCourseID          uint           `gorm:"type:bigint unsigned;not null;uniqueIndex:uq_subcourse_progress,priority:3" json:"subCourseId"`
	Status               ProgressStatus `gorm:"type:enum('not_started','in_progress','completed');default:'not_started'" json:"status"`
	Score                *float64       `gorm:"type:decimal(5,2)" json:"score,omitempty"`
	CompletionPercentage int            `gorm:"default:0" json:"completionPercentage"`
	TimeSpentSeconds     int            `gorm:"default:0" json:"timeSpentSeconds"`
	Attempts             int            `gorm:"default:0" json:"attempts"`
	StartedAt            *time.Time     `json:"startedAt,omitempty"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
	LastAccessedAt       *time.Time     `json:"lastAccessedAt,omitempty"`
}

func (SubCourseProgress) TableName() string {
	return "sub_course_progress"
}
