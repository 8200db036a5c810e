package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyplan/backend/internal/dto"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
	pkgerrors "studyplan/backend/pkg/errors"
)

var ErrCourseNotFound = errors.New("课程不存在或尚无课时")

// EnrollmentService 选课业务接口
type EnrollmentService interface {
	// Enroll 选课；已在学时幂等返回，退课后重新选课复用原记录（进度保留）
	Enroll(ctx context.Context, studentID, courseID string) (*dto.EnrollmentResponse, error)
	// Withdraw 退课并移除今日计划中该课程未完成的课时；对已退课程重复调用会重放计划修订后返回 ErrNotEnrolled
	Withdraw(ctx context.Context, studentID, courseID string) error
	ListCourses(ctx context.Context, studentID string) (*dto.CourseListResponse, error)
}

type enrollmentService struct {
	repo     *repository.Repository
	revision RevisionService
	logger   *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, revision RevisionService, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, revision: revision, logger: logger}
}

func (s *enrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*dto.EnrollmentResponse, error) {
	total, err := s.repo.Lesson.CountByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课程课时失败", zap.Error(err))
		return nil, err
	}
	if total == 0 {
		return nil, ErrCourseNotFound
	}

	existing, err := s.repo.Enrollment.Get(ctx, studentID, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return nil, err
	}
	if existing != nil && existing.Active {
		return toEnrollmentResponse(existing), nil
	}

	now := time.Now()
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if existing != nil {
			if err := tx.Enrollment.Reactivate(ctx, studentID, courseID, now); err != nil {
				return err
			}
		} else {
			if err := tx.Enrollment.Create(ctx, &model.Enrollment{
				StudentID:  studentID,
				CourseID:   courseID,
				Active:     true,
				EnrolledAt: now,
			}); err != nil {
				return err
			}
		}
		return tx.Progress.Init(ctx, studentID, courseID)
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			// 并发选课：另一请求已创建
			current, getErr := s.repo.Enrollment.Get(ctx, studentID, courseID)
			if getErr != nil {
				return nil, getErr
			}
			return toEnrollmentResponse(current), nil
		}
		s.logger.Error("选课失败", zap.Error(err))
		return nil, err
	}

	if err := s.revision.OnEnrollmentChanged(ctx, studentID, courseID, model.ChangeEnrolled); err != nil {
		return nil, err
	}

	s.logger.Info("选课成功", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return &dto.EnrollmentResponse{CourseID: courseID, Active: true, EnrolledAt: now}, nil
}

func (s *enrollmentService) Withdraw(ctx context.Context, studentID, courseID string) error {
	existing, err := s.repo.Enrollment.Get(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return err
	}
	if !existing.Active {
		// 上次退课可能在修订今日计划前失败：重放修订（无可移除课时时为空操作）
		if err := s.revision.OnEnrollmentChanged(ctx, studentID, courseID, model.ChangeWithdrawn); err != nil {
			return err
		}
		return ErrNotEnrolled
	}

	if err := s.repo.Enrollment.Deactivate(ctx, studentID, courseID, time.Now()); err != nil {
		s.logger.Error("退课失败", zap.Error(err))
		return err
	}

	s.logger.Info("退课成功", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return s.revision.OnEnrollmentChanged(ctx, studentID, courseID, model.ChangeWithdrawn)
}

func (s *enrollmentService) ListCourses(ctx context.Context, studentID string) (*dto.CourseListResponse, error) {
	enrollments, err := s.repo.Enrollment.ListActive(ctx, studentID)
	if err != nil {
		s.logger.Error("查询有效选课失败", zap.Error(err))
		return nil, err
	}

	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	rows, err := s.repo.Progress.ListByCourses(ctx, studentID, courseIDs)
	if err != nil {
		s.logger.Error("查询课程进度失败", zap.Error(err))
		return nil, err
	}
	cursors := make(map[string]int, len(rows))
	for _, p := range rows {
		cursors[p.CourseID] = p.LastCompletedOrdinal
	}

	resp := &dto.CourseListResponse{
		Active:            make([]dto.CourseProgressResponse, 0, len(enrollments)),
		FinishedCourseIDs: []string{},
	}
	for _, e := range enrollments {
		total, err := s.repo.Lesson.CountByCourse(ctx, e.CourseID)
		if err != nil {
			s.logger.Error("查询课程课时失败", zap.Error(err))
			return nil, err
		}
		resp.Active = append(resp.Active, dto.CourseProgressResponse{
			CourseID:             e.CourseID,
			LastCompletedOrdinal: cursors[e.CourseID],
			TotalLessons:         total,
			EnrolledAt:           e.EnrolledAt,
		})
	}

	list, err := s.repo.CourseList.Get(ctx, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询已完成课程失败", zap.Error(err))
		return nil, err
	}
	if list != nil {
		resp.FinishedCourseIDs = append(resp.FinishedCourseIDs, list.FinishedCourseIDs...)
	}
	return resp, nil
}

func toEnrollmentResponse(e *model.Enrollment) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		CourseID:   e.CourseID,
		Active:     e.Active,
		EnrolledAt: e.EnrolledAt,
	}
}
