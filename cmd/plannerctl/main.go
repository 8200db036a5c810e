package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

const version = "1.0.0"

func main() {
	app := cli.NewApp()
	app.Name = "plannerctl"
	app.Usage = "每日学习计划服务运维工具"
	app.Version = version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:  "migrate",
			Usage: "数据库迁移",
			Subcommands: []cli.Command{
				{
					Name:   "up",
					Usage:  "执行全部未应用的迁移",
					Action: migrateUp,
				},
				{
					Name:   "down",
					Usage:  "回滚迁移",
					Flags:  migrateDownFlags,
					Action: migrateDown,
				},
			},
		},
		{
			Name:  "plan",
			Usage: "查看或预构建学生的每日计划",
			Subcommands: []cli.Command{
				{
					Name:   "show",
					Usage:  "输出指定学生某日的计划（不触发构建）",
					Flags:  planFlags,
					Action: planShow,
				},
				{
					Name:   "build",
					Usage:  "获取指定学生某日的计划，不存在时构建",
					Flags:  append(planFlags, budgetFlag),
					Action: planBuild,
				},
			},
		},
		{
			Name:   "token",
			Usage:  "签发测试用 Access Token",
			Flags:  tokenFlags,
			Action: issueToken,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "plannerctl: %v\n", err)
		os.Exit(1)
	}
}
