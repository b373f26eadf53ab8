package model

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// OptionKeys 四个固定选项标签，作答只允许这四个值
var OptionKeys = []string{"A", "B", "C", "D"}

func IsValidOptionKey(key string) bool {
	for _, k := range OptionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// QuizQuestion 题库中的一道题，归属于一个学习单元
// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	SubCourseID   uint       `gorm:"index;type:bigint unsigned;not null" json:"subCourseId"`
	QuestionText  string     `gorm:"type:text;not null" json:"questionText"`
	OptionA       string     `gorm:"size:500;not null" json:"optionA"`
	OptionB       string     `gorm:"size:500;not null" json:"optionB"`
	OptionC       string     `gorm:"size:500;not null" json:"optionC"`
	OptionD       string     `gorm:"size:500;not null" json:"optionD"`
	CorrectAnswer string     `gorm:"type:enum('A','B','C','D');not null" json:"correctAnswer"`
	Difficulty    Difficulty `gorm:"type:enum('easy','medium','hard');not null" json:"difficulty"`
	Points        int        `gorm:"default:10" json:"points"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// OptionText 按标签取出原始选项文本
func (q *QuizQuestion) OptionText(key string) string {
	switch key {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}
