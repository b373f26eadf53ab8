package model

// 无配置记录时由服务层套用的默认值
const (
	DefaultPoolSize            = 30
	DefaultQuestionsPerAttempt = 10
	DefaultTimeLimitMinutes    = 60
)

// QuizSettings 每个测验单元一条配置，MaxAttempts 为 nil 表示不限次数
// swagger:model QuizSettings
type QuizSettings struct {
	BaseModel
	SubCourseID            uint `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"subCourseId"`
	TotalQuestionsInPool   int  `gorm:"not null;default:30" json:"totalQuestionsInPool"`
	QuestionsPerAttempt    int  `gorm:"not null;default:10" json:"questionsPerAttempt"`
	TimeLimitMinutes       int  `gorm:"not null;default:60" json:"timeLimitMinutes"`
	MaxAttempts            *int `json:"maxAttempts,omitempty"`
	ShuffleQuestions       bool `gorm:"default:true" json:"shuffleQuestions"`
	ShuffleOptions         bool `gorm:"default:true" json:"shuffleOptions"`
	ShowResultsImmediately bool `gorm:"default:true" json:"showResultsImmediately"`
}

func (QuizSettings) TableName() string {
	return "quiz_settings"
}

// DefaultQuizSettings 返回未配置单元的默认测验配置
func DefaultQuizSettings(subCourseID uint) *QuizSettings {
	return &QuizSettings{
		SubCourseID:            subCourseID,
		TotalQuestionsInPool:   DefaultPoolSize,
		QuestionsPerAttempt:    DefaultQuestionsPerAttempt,
		TimeLimitMinutes:       DefaultTimeLimitMinutes,
		MaxAttempts:            nil,
		ShuffleQuestions:       true,
		ShuffleOptions:         true,
		ShowResultsImmediately: true,
	}
}
