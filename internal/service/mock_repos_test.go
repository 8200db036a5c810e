package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"studyplan/backend/internal/model"
	pkgerrors "studyplan/backend/pkg/errors"
	"studyplan/backend/pkg/stats"
)

func pairKey(a, b string) string { return a + "|" + b }

// ── Mock LessonRepository ──

type mockLessonRepo struct {
	mu        sync.Mutex
	lessons   map[string][]model.Lesson // courseID → 按序号升序
	failures  map[string]error          // courseID → ListAfter 返回的错误
	listCalls int
}

func newMockLessonRepo() *mockLessonRepo {
	return &mockLessonRepo{
		lessons:  make(map[string][]model.Lesson),
		failures: make(map[string]error),
	}
}

// seed 为课程生成 durations 个课时，序号从 1 开始
func (m *mockLessonRepo) seed(courseID string, durations ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range durations {
		m.lessons[courseID] = append(m.lessons[courseID], model.Lesson{
			LessonID:        fmt.Sprintf("%s-l%d", courseID, i+1),
			CourseID:        courseID,
			Ordinal:         i + 1,
			DurationSeconds: d,
		})
	}
}

func (m *mockLessonRepo) ListAfter(_ context.Context, courseID string, afterOrdinal, limit int) ([]model.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if err, ok := m.failures[courseID]; ok {
		return nil, err
	}
	var result []model.Lesson
	for _, l := range m.lessons[courseID] {
		if l.Ordinal > afterOrdinal && len(result) < limit {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockLessonRepo) CountByCourse(_ context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lessons[courseID]), nil
}

func (m *mockLessonRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]*model.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: make(map[string]*model.Enrollment)}
}

func (m *mockEnrollmentRepo) Get(_ context.Context, studentID, courseID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[pairKey(studentID, courseID)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(e.StudentID, e.CourseID)
	if _, ok := m.enrollments[key]; ok {
		return fmt.Errorf("duplicate enrollment %s", key)
	}
	if e.EnrollmentID == "" {
		e.EnrollmentID = "enr-" + key
	}
	cp := *e
	m.enrollments[key] = &cp
	return nil
}

func (m *mockEnrollmentRepo) Reactivate(_ context.Context, studentID, courseID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[pairKey(studentID, courseID)]; ok {
		e.Active = true
		e.EnrolledAt = at
		e.WithdrawnAt = nil
	}
	return nil
}

func (m *mockEnrollmentRepo) Deactivate(_ context.Context, studentID, courseID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[pairKey(studentID, courseID)]; ok && e.Active {
		e.Active = false
		e.WithdrawnAt = &at
	}
	return nil
}

func (m *mockEnrollmentRepo) ListActive(_ context.Context, studentID string) ([]model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.Active {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result, nil
}

// ── Mock CourseProgressRepository ──

type mockProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*model.CourseProgress
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{rows: make(map[string]*model.CourseProgress)}
}

func (m *mockProgressRepo) Init(_ context.Context, studentID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(studentID, courseID)
	if _, ok := m.rows[key]; !ok {
		m.rows[key] = &model.CourseProgress{StudentID: studentID, CourseID: courseID}
	}
	return nil
}

func (m *mockProgressRepo) Get(_ context.Context, studentID, courseID string) (*model.CourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[pairKey(studentID, courseID)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProgressRepo) ListByCourses(_ context.Context, studentID string, courseIDs []string) ([]model.CourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.CourseProgress
	for _, c := range courseIDs {
		if p, ok := m.rows[pairKey(studentID, c)]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProgressRepo) Increment(_ context.Context, studentID, courseID string, total int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[pairKey(studentID, courseID)]
	if !ok {
		return 0, false, gorm.ErrRecordNotFound
	}
	if p.LastCompletedOrdinal >= total {
		return p.LastCompletedOrdinal, false, nil
	}
	p.LastCompletedOrdinal++
	return p.LastCompletedOrdinal, true, nil
}

func (m *mockProgressRepo) cursor(studentID, courseID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[pairKey(studentID, courseID)]; ok {
		return p.LastCompletedOrdinal
	}
	return -1
}

// ── Mock StudentCourseListRepository ──

type mockCourseListRepo struct {
	mu    sync.Mutex
	lists map[string]*model.StudentCourseList
}

func newMockCourseListRepo() *mockCourseListRepo {
	return &mockCourseListRepo{lists: make(map[string]*model.StudentCourseList)}
}

func (m *mockCourseListRepo) Get(_ context.Context, studentID string) (*model.StudentCourseList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lists[studentID]; ok {
		cp := *l
		cp.FinishedCourseIDs = append([]string(nil), l.FinishedCourseIDs...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseListRepo) MarkCourseFinished(_ context.Context, studentID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[studentID]
	if !ok {
		l = &model.StudentCourseList{StudentID: studentID}
		m.lists[studentID] = l
	}
	for _, id := range l.FinishedCourseIDs {
		if id == courseID {
			return nil
		}
	}
	l.FinishedCourseIDs = append(l.FinishedCourseIDs, courseID)
	return nil
}

// ── Mock DailyPlanRepository ──

type mockDailyPlanRepo struct {
	mu          sync.Mutex
	plans       map[string]*model.DailyPlan // student|date → 已持久化的计划
	createCalls int
	// updateConflicts 之后 N 次 Update 返回乐观锁冲突
	updateConflicts int
}

func newMockDailyPlanRepo() *mockDailyPlanRepo {
	return &mockDailyPlanRepo{plans: make(map[string]*model.DailyPlan)}
}

func clonePlan(p *model.DailyPlan) *model.DailyPlan {
	cp := *p
	cp.Lessons = append([]model.LessonRef{}, p.Lessons...)
	cp.CompletedLessonIDs = append([]string{}, p.CompletedLessonIDs...)
	return &cp
}

func (m *mockDailyPlanRepo) GetByStudentDate(_ context.Context, studentID, planDate string) (*model.DailyPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[pairKey(studentID, planDate)]; ok {
		return clonePlan(p), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDailyPlanRepo) CreateIfAbsent(_ context.Context, plan *model.DailyPlan) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	key := pairKey(plan.StudentID, plan.PlanDate)
	if _, ok := m.plans[key]; ok {
		return false, nil
	}
	plan.PlanID = "plan-" + key
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = plan.CreatedAt
	m.plans[key] = clonePlan(plan)
	return true, nil
}

func (m *mockDailyPlanRepo) Update(_ context.Context, plan *model.DailyPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateConflicts > 0 {
		m.updateConflicts--
		return pkgerrors.ErrOptimisticLock
	}
	key := pairKey(plan.StudentID, plan.PlanDate)
	stored, ok := m.plans[key]
	if !ok || stored.Version != plan.Version {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Version++
	next := clonePlan(plan)
	// Update 不覆盖完成集合与进度（由 AppendCompletion 原子维护）
	next.CompletedLessonIDs = stored.CompletedLessonIDs
	next.Progress = stored.Progress
	m.plans[key] = next
	return nil
}

func (m *mockDailyPlanRepo) AppendCompletion(_ context.Context, planID, lessonID string) (*model.DailyPlan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.PlanID != planID {
			continue
		}
		if p.HasCompleted(lessonID) {
			return nil, false, nil
		}
		p.CompletedLessonIDs = append(p.CompletedLessonIDs, lessonID)
		if p.Progress+1 >= p.LessonCount {
			p.Status = model.PlanStatusCompleted
		} else {
			p.Status = model.PlanStatusInProgress
		}
		p.Progress++
		p.Version++
		return clonePlan(p), true, nil
	}
	return nil, false, nil
}

func (m *mockDailyPlanRepo) ListByRange(_ context.Context, studentID, from, to string) ([]model.DailyPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.DailyPlan
	for _, p := range m.plans {
		if p.StudentID == studentID && p.PlanDate >= from && p.PlanDate <= to {
			result = append(result, *clonePlan(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlanDate < result[j].PlanDate })
	return result, nil
}

// stored 直接读取持久化状态（测试断言用）
func (m *mockDailyPlanRepo) stored(studentID, planDate string) *model.DailyPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[pairKey(studentID, planDate)]; ok {
		return clonePlan(p)
	}
	return nil
}

// ── Mock PlanRevisionLogRepository ──

type mockRevisionLogRepo struct {
	mu   sync.Mutex
	logs []model.PlanRevisionLog
}

func newMockRevisionLogRepo() *mockRevisionLogRepo {
	return &mockRevisionLogRepo{}
}

func (m *mockRevisionLogRepo) Create(_ context.Context, log *model.PlanRevisionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockRevisionLogRepo) ListByPlan(_ context.Context, planID string) ([]model.PlanRevisionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.PlanRevisionLog
	for _, l := range m.logs {
		if l.PlanID == planID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ── Mock stats.Sink ──

type mockStatsSink struct {
	mu       sync.Mutex
	lessons  []stats.LessonCompletedEvent
	finished []stats.CourseFinishedEvent
	err      error
}

func (m *mockStatsSink) LessonCompleted(_ context.Context, evt stats.LessonCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons = append(m.lessons, evt)
	return m.err
}

func (m *mockStatsSink) CourseFinished(_ context.Context, evt stats.CourseFinishedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, evt)
	return m.err
}
