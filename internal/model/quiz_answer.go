package model

import "time"

// QuizAnswer 一次会话里对一道题的作答，(session, question) 唯一，
// 重复提交按 last-write-wins 覆盖。
// swagger:model QuizAnswer
type QuizAnswer struct {
	BaseModel
	SessionID      uint      `gorm:"type:bigint unsigned;not null;uniqueIndex:uq_quiz_answers_session_question,priority:1" json:"sessionId"`
	QuestionID     uint      `gorm:"type:bigint unsigned;not null;uniqueIndex:uq_quiz_answers_session_question,priority:2" json:"questionId"`
	SelectedAnswer *string   `gorm:"type:enum('A','B','C','D')" json:"selectedAnswer,omitempty"`
	IsCorrect      bool      `gorm:"default:false" json:"isCorrect"`
	AnsweredAt     time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"answeredAt"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
