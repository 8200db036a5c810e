package dto

// EnrollRequest 选课请求
type EnrollRequest struct {
	CourseID string `json:"course_id" binding:"required,uuid"`
}
