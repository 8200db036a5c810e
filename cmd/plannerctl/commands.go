package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyplan/backend/config"
	"studyplan/backend/internal/dto"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
	"studyplan/backend/internal/service"
	"studyplan/backend/pkg/calendar"
	"studyplan/backend/pkg/database"
	"studyplan/backend/pkg/jwt"
	"studyplan/backend/pkg/lock"
	applogger "studyplan/backend/pkg/logger"
	"studyplan/backend/pkg/redis"
	"studyplan/backend/pkg/stats"
)

var errStudentRequired = errors.New("必须通过 --student 指定学生 ID")

// env 子命令共用的运行环境
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}

func (e *env) close() {
	e.sqlDB.Close()
	e.logger.Sync()
}

// services 组装计划服务；CLI 与 HTTP 服务可能同时运行，配置了 Redis 时共用分布式计划锁
func (e *env) services() (*service.Service, *calendar.Calendar, func(), error) {
	loc, err := e.cfg.Scheduler.Location()
	if err != nil {
		return nil, nil, nil, err
	}
	cal := calendar.New(loc)

	var locker lock.Locker = lock.NewLocalLocker()
	cleanup := func() {}
	if rdb, err := redis.NewClient(&e.cfg.Redis, e.logger); err == nil {
		locker = lock.NewRedisLocker(rdb, e.cfg.Scheduler.LockTTL, e.logger)
		cleanup = func() { rdb.Close() }
	} else {
		e.logger.Warn("Redis 不可用，使用进程内计划锁", zap.Error(err))
	}

	repo := repository.NewRepository(e.db)
	svc := service.NewService(e.cfg, repo, locker, stats.NewSink(&e.cfg.Stats, e.logger), cal, e.logger)
	return svc, cal, cleanup, nil
}

func migrateUp(_ *cli.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()
	return database.RunMigrations(e.sqlDB, e.logger)
}

func migrateDown(_ *cli.Context) error {
	if rollbackSteps <= 0 {
		return fmt.Errorf("--steps 必须为正数")
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()
	return database.RollbackMigrations(e.sqlDB, rollbackSteps, e.logger)
}

func planShow(_ *cli.Context) error {
	return withPlanService(func(ctx context.Context, svc *service.Service, date string) (*model.DailyPlan, error) {
		return svc.Plan.GetPlan(ctx, studentID, date)
	})
}

func planBuild(_ *cli.Context) error {
	return withPlanService(func(ctx context.Context, svc *service.Service, date string) (*model.DailyPlan, error) {
		return svc.Plan.GetOrBuildPlan(ctx, studentID, date, budgetMinutes)
	})
}

type planFunc func(ctx context.Context, svc *service.Service, date string) (*model.DailyPlan, error)

func withPlanService(fn planFunc) error {
	if studentID == "" {
		return errStudentRequired
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	svc, cal, cleanup, err := e.services()
	if err != nil {
		return err
	}
	defer cleanup()

	date := planDate
	if date == "" {
		date = cal.Today()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	plan, err := fn(ctx, svc, date)
	if err != nil {
		return err
	}
	return printJSON(dto.NewPlanResponse(plan))
}

func issueToken(_ *cli.Context) error {
	if studentID == "" {
		return errStudentRequired
	}
	if role != "student" && role != "admin" {
		return fmt.Errorf("无效的角色 %q", role)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(studentID, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
