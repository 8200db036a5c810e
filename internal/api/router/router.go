package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studyplan/backend/config"
	"studyplan/backend/internal/api/handler"
	"studyplan/backend/internal/api/middleware"
	"studyplan/backend/pkg/jwt"
	"studyplan/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：此时写接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	writeLimit := middleware.RateLimit(rdb, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)

	// ── API v1（全部需要认证，学生身份只来自 Token） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 每日计划模块
		plans := v1.Group("/plans")
		{
			plans.GET("/today", h.Plan.GetToday)
			plans.POST("/today/complete", writeLimit, h.Plan.Complete)
			plans.GET("", h.Plan.ListHistory)
			plans.GET("/:date", h.Plan.GetByDate)
		}

		// 选课模块
		enrollments := v1.Group("/enrollments")
		{
			enrollments.GET("", h.Enrollment.List)
			enrollments.POST("", writeLimit, h.Enrollment.Enroll)
			enrollments.DELETE("/:course_id", writeLimit, h.Enrollment.Withdraw)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/plans", h.Export.ExportHistory)
			export.GET("/plans/:date/calendar", h.Export.ExportCalendar)
		}

		// 运维查询
		admin := v1.Group("/admin", middleware.RoleAuth("admin"))
		{
			admin.GET("/students/:student_id/plans/:date", h.Plan.GetStudentPlan)
		}
	}

	return r
}
