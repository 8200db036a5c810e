package main

import "github.com/urfave/cli"

var (
	configPath    string
	rollbackSteps int
	studentID     string
	planDate      string
	budgetMinutes int
	role          string
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "配置文件路径（缺省时按默认路径查找）",
		EnvVar:      "PLANNER_CONFIG",
		Destination: &configPath,
	},
}

var migrateDownFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "steps, n",
		Usage:       "回滚的迁移步数",
		Value:       1,
		Destination: &rollbackSteps,
	},
}

var planFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "student, s",
		Usage:       "学生 ID",
		Destination: &studentID,
	},
	cli.StringFlag{
		Name:        "date, d",
		Usage:       "计划日期 YYYY-MM-DD（缺省为今天）",
		Destination: &planDate,
	},
}

var budgetFlag = cli.IntFlag{
	Name:        "budget, b",
	Usage:       "每日学习预算（分钟），负数表示使用默认预算",
	Value:       -1,
	Destination: &budgetMinutes,
}

var tokenFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "student, s",
		Usage:       "学生 ID",
		Destination: &studentID,
	},
	cli.StringFlag{
		Name:        "role, r",
		Usage:       "角色 student | admin",
		Value:       "student",
		Destination: &role,
	},
}
