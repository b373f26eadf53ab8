package model

type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentQuiz  ContentType = "quiz"
	ContentPDF   ContentType = "pdf_material"
	ContentText  ContentType = "text"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	TeacherID   string `gorm:"index;type:varchar(36);not null" json:"teacherId"`
	CoverURL    string `gorm:"size:255" json:"coverUrl"`
	IsPublished bool   `gorm:"default:false" json:"isPublished"`
}

func (Course) TableName() string {
	return "courses"
}

// SubCourse 课程下的单个学习单元（视频/文本/测验）
// swagger:model SubCourse
type SubCourse struct {
	BaseModel
	CourseID      uint        `gorm:"index;type:bigint unsigned;not null;uniqueIndex:uq_sub_courses_course_order,priority:1" json:"courseId"`
	Title         string      `gorm:"size:255;not null" json:"title"`
	Summary       string      `gorm:"type:text" json:"summary"`
	ContentType   ContentType `gorm:"type:enum('video','quiz','pdf_material','text');not null" json:"contentType"`
	ContentURL    string      `gorm:"size:255" json:"contentUrl"`
	OrderInCourse int         `gorm:"not null;uniqueIndex:uq_sub_courses_course_order,priority:2" json:"orderInCourse"`
}

func (SubCourse) TableName() string {
	return "sub_courses"
}
