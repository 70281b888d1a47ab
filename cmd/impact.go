package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/cruiser/internal/impact"
)

func impactCmd() *cobra.Command {
	var upstreamDepth int
	var downstreamDepth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "impact <module>",
		Short: "分析模块变更的影响范围",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			target, err := resolveModule(db, args[0], selectN)
			if err != nil {
				return err
			}

			report, err := impact.NewAnalyzer(db).AnalyzeImpact(target.Source, upstreamDepth, downstreamDepth)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report)
			case "markdown":
				fmt.Print(report.FormatMarkdown())
			default:
				fmt.Print(report.FormatTree())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&upstreamDepth, "upstream-depth", 7, "上游递归深度 (0=无限)")
	cmd.Flags().IntVar(&downstreamDepth, "downstream-depth", 7, "下游递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个模块时，直接选择第N个（跳过交互提示）")
	return cmd
}
