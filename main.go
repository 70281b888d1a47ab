package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/cruiser/cmd"
	"github.com/zheng/cruiser/internal/logging"
)

var (
	logLevel string
	logJSON  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cruiser",
		Short: "cruiser - 依赖关系图分析与规则校验工具",
		Long: `cruiser 分析 Go 与 JavaScript/TypeScript 项目的模块依赖关系，
构建完整的依赖图，检测循环依赖并按规则集校验依赖是否合规。`,
		Version:       cmd.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logging.Setup(logging.Config{Level: level, JSON: logJSON, Writer: os.Stderr})
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cmd.DbPath, "db", "d", ".cruiser.db", "数据库文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别 (debug/info/warn/error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "以 JSON 格式输出日志")

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
