// Package calendar 负责把时间点映射为学习计划使用的自然日（YYYY-MM-DD）。
package calendar

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// DateLayout 计划日期键格式
const DateLayout = "2006-01-02"

// Calendar 以固定时区划分自然日
type Calendar struct {
	cfg   *now.Config
	clock func() time.Time
}

// New 创建指定时区的日历
func New(loc *time.Location) *Calendar {
	return &Calendar{
		cfg: &now.Config{
			WeekStartDay: time.Monday,
			TimeLocation: loc,
			TimeFormats:  []string{DateLayout},
		},
		clock: time.Now,
	}
}

// WithClock 替换时间源（测试用）
func (c *Calendar) WithClock(clock func() time.Time) *Calendar {
	return &Calendar{cfg: c.cfg, clock: clock}
}

// Location 日历所在时区
func (c *Calendar) Location() *time.Location {
	return c.cfg.TimeLocation
}

// Today 当前自然日键
func (c *Calendar) Today() string {
	return c.DateOf(c.clock())
}

// DateOf 任意时间点所在的自然日键
func (c *Calendar) DateOf(t time.Time) string {
	return c.cfg.With(t.In(c.cfg.TimeLocation)).BeginningOfDay().Format(DateLayout)
}

// StartOfDay 自然日键对应当天 00:00（日历时区）
func (c *Calendar) StartOfDay(date string) (time.Time, error) {
	if err := ValidateDate(date); err != nil {
		return time.Time{}, err
	}
	t, err := c.cfg.Parse(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析日期 %q 失败: %w", date, err)
	}
	return c.cfg.With(t).BeginningOfDay(), nil
}

// ValidateDate 校验日期键格式
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("日期格式应为 YYYY-MM-DD: %q", date)
	}
	return nil
}
