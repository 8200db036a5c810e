// Package lock 提供按 (学生, 日期) 串行化计划写操作的锁。
// 配置了 Redis 时使用分布式锁，否则退化为进程内互斥锁。
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyplan/backend/pkg/redis"
)

// ErrLockTimeout 在等待期限内未获得锁
var ErrLockTimeout = errors.New("获取计划锁超时")

// Locker 计划写操作串行化点
type Locker interface {
	// Lock 阻塞直到获得 key 对应的锁，返回释放函数
	Lock(ctx context.Context, key string) (func(), error)
}

// ── 进程内实现 ──

type localEntry struct {
	mu   sync.Mutex
	refs int
}

// LocalLocker 进程内按 key 互斥
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[string]*localEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { l.release(key, e) }, nil
	case <-ctx.Done():
		// 等待方放弃：拿到锁后立即归还
		go func() {
			<-acquired
			l.release(key, e)
		}()
		return nil, ErrLockTimeout
	}
}

func (l *LocalLocker) release(key string, e *localEntry) {
	e.mu.Unlock()
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// ── Redis 实现 ──

// lockClient RedisLocker 所需的最小 Redis 能力
type lockClient interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// RedisLocker 基于 SET NX PX 的分布式锁
// 持有期间每 ttl/3 续期一次，操作耗时超过 ttl 也不会丢失串行化
type RedisLocker struct {
	client   lockClient
	ttl      time.Duration
	waitStep time.Duration
	logger   *zap.Logger
}

// NewRedisLocker 创建分布式锁；ttl 同时是获取锁的最长等待时间
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return newRedisLocker(client, ttl, logger)
}

func newRedisLocker(client lockClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, waitStep: 25 * time.Millisecond, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.ttl)
	step := l.waitStep

	for {
		ok, err := l.client.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return l.hold(key, token), nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(step):
		}
		if step < 200*time.Millisecond {
			step *= 2
		}
	}
}

// hold 启动续期 goroutine，返回的释放函数停止续期并删除锁（可重复调用）
func (l *RedisLocker) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				extendCtx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
				ok, err := l.client.Extend(extendCtx, key, token, l.ttl)
				cancel()
				if err != nil {
					l.logger.Warn("计划锁续期失败", zap.String("key", key), zap.Error(err))
					continue
				}
				if !ok {
					l.logger.Error("计划锁已丢失", zap.String("key", key))
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// 释放使用独立 context，调用方 ctx 可能已取消
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := l.client.Unlock(releaseCtx, key, token); err != nil {
				l.logger.Warn("释放计划锁失败", zap.String("key", key), zap.Error(err))
			}
		})
	}
}
