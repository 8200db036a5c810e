package model

// Lesson 课时目录表，对应 lessons（调度器只读）
type Lesson struct {
	LessonID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"lesson_id"`
	CourseID        string `gorm:"type:uuid;not null"                             json:"course_id"`
	Ordinal         int    `gorm:"not null"                                       json:"ordinal"` // 课程内序号，从 1 开始
	Title           string `gorm:"type:varchar(200);not null;default:''"          json:"title"`
	DurationSeconds int    `gorm:"not null"                                       json:"duration_seconds"`
	BaseModel
}

func (Lesson) TableName() string { return "lessons" }

// Ref 生成计划使用的课时快照
func (l *Lesson) Ref() LessonRef {
	return LessonRef{
		CourseID:        l.CourseID,
		LessonID:        l.LessonID,
		DurationSeconds: l.DurationSeconds,
		Ordinal:         l.Ordinal,
	}
}

// LessonRef 计划内的课时快照
// 构建计划时按值保存，之后修改课时时长不会影响已生成的计划
type LessonRef struct {
	CourseID        string `json:"course_id"`
	LessonID        string `json:"lesson_id"`
	DurationSeconds int    `json:"duration_seconds"`
	Ordinal         int    `json:"ordinal"`
}
