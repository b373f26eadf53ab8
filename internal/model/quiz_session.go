package model

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// AssignedOption 快照中一个展示位置上的选项
type AssignedOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// AssignedQuestion 会话快照中的一道题。选项顺序和 CorrectAnswerKey
// 在创建会话时固定，之后题库的任何修改都不再影响它。
type AssignedQuestion struct {
	QuestionID       uint             `json:"question_id"`
	QuestionText     string           `json:"question_text"`
	Options          []AssignedOption `json:"options"`
	CorrectAnswerKey string           `json:"correct_answer_key"`
	Difficulty       Difficulty       `json:"difficulty_level"`
	Points           int              `json:"points"`
}

// QuizSession 一次测验尝试。(student, sub_course, attempt_number) 唯一，
// 保证并发开考时序号不会重复。
// swagger:model QuizSession
type QuizSession struct {
	BaseModel
	StudentID          string        `gorm:"type:varchar(36);not null;uniqueIndex:uq_quiz_sessions_attempt,priority:1" json:"studentId"`
	SubCourseID        uint          `gorm:"index;type:bigint unsigned;not null;uniqueIndex:uq_quiz_sessions_attempt,priority:2" json:"subCourseId"`
	SessionToken       string        `gorm:"size:255;uniqueIndex;not null" json:"sessionToken"`
	QuestionsAssigned  string        `gorm:"type:json;not null" json:"-"`
	TimeLimitMinutes   int           `gorm:"not null;default:60" json:"timeLimitMinutes"`
	StartTime          *time.Time    `json:"startTime,omitempty"`
	EndTime            *time.Time    `json:"endTime,omitempty"`
	Status             SessionStatus `gorm:"type:enum('pending','active','completed','expired');default:'pending'" json:"status"`
	AttemptNumber      int           `gorm:"not null;default:1;uniqueIndex:uq_quiz_sessions_attempt,priority:3" json:"attemptNumber"`
	TotalQuestions     int           `gorm:"not null" json:"totalQuestions"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

// Snapshot 反序列化冻结的题目快照
func (s *QuizSession) Snapshot() ([]AssignedQuestion, error) {
	var qs []AssignedQuestion
	if err := json.Unmarshal([]byte(s.QuestionsAssigned), &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// SetSnapshot 序列化并冻结题目快照
func (s *QuizSession) SetSnapshot(qs []AssignedQuestion) error {
	b, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	s.QuestionsAssigned = string(b)
	s.TotalQuestions = len(qs)
	return nil
}

// IsTerminal completed/expired 之后会话不再接受任何写入
func (s *QuizSession) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionExpired
}

// TimedOut 判断 now 时刻是否已超出作答时限
func (s *QuizSession) TimedOut(now time.Time) bool {
	if s.StartTime == nil {
		return false
	}
	return now.Sub(*s.StartTime) > time.Duration(s.TimeLimitMinutes)*time.Minute
}
