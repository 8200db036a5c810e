package repository

import (
	"context"

	"gorm.io/gorm"

	"studyplan/backend/internal/model"
)

// LessonRepository 课时目录只读访问接口
type LessonRepository interface {
	// ListAfter 返回课程中序号大于 afterOrdinal 的前 limit 个课时，按序号升序
	ListAfter(ctx context.Context, courseID string, afterOrdinal, limit int) ([]model.Lesson, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type lessonRepo struct {
	db *gorm.DB
}

func NewLessonRepo(db *gorm.DB) LessonRepository {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) ListAfter(ctx context.Context, courseID string, afterOrdinal, limit int) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND ordinal > ?", courseID, afterOrdinal).
		Order("ordinal ASC").
		Limit(limit).
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&total).Error
	return int(total), err
}
