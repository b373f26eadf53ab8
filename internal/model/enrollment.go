package model

import "time"

// StudentEnrollment 学生选课记录，一个学生对一门课最多一条
// swagger:model StudentEnrollment
type StudentEnrollment struct {
	BaseModel
	StudentID  string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_enrollments_student_course,priority:1" json:"studentId"`
	CourseID   uint      `gorm:"type:bigint unsigned;not null;uniqueIndex:uq_enrollments_student_course,priority:2" json:"courseId"`
	EnrolledAt time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"enrolledAt"`
}

func (StudentEnrollment) TableName() string {
	return "student_enrollments"
}
