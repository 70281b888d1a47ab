package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/cruiser/internal/display"
	"github.com/zheng/cruiser/internal/storage"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "查询数据库中的依赖图",
	}

	cmd.AddCommand(walkCmd("dependents", "查询依赖指定模块的上游模块", true))
	cmd.AddCommand(walkCmd("dependencies", "查询指定模块依赖的下游模块", false))
	cmd.AddCommand(listDepsCmd("cycles", "列出所有循环依赖", (*storage.DB).GetCircularDependencies, display.FormatDependencies))
	cmd.AddCommand(listDepsCmd("violations", "列出所有违反规则的依赖", (*storage.DB).GetViolations, display.FormatViolations))
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(statsCmd())
	return cmd
}

func walkCmd(use, short string, upstream bool) *cobra.Command {
	var depth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   use + " <module>",
		Short: short,
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

			switch format {
			case "json":
				var modules []*storage.Module
				if upstream {
					modules, err = db.GetUpstream(target.Source, depth)
				} else {
					modules, err = db.GetDownstream(target.Source, depth)
				}
				if err != nil {
					return err
				}
				return outputJSON(modules)
			default:
				var tree []*storage.TreeNode
				if upstream {
					tree, err = db.GetDependentTree(target.Source, depth)
				} else {
					tree, err = db.GetDependencyTree(target.Source, depth)
				}
				if err != nil {
					return err
				}

				fmt.Println(target.Source)
				if len(tree) == 0 {
					fmt.Println("└── (无)")
					return nil
				}
				printTree(tree)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个模块时，直接选择第N个（跳过交互提示）")
	return cmd
}

func listDepsCmd(use, short string, list func(*storage.DB) ([]*storage.Dependency, error), render func([]*storage.Dependency) string) *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			deps, err := list(db)
			if err != nil {
				return err
			}
			total := len(deps)
			if limit > 0 && len(deps) > limit {
				deps = deps[:limit]
			}

			if format == "json" {
				return outputJSON(deps)
			}

			if total == 0 {
				fmt.Println("(无)")
				return nil
			}
			fmt.Printf("共 %d 条\n\n", total)
			fmt.Print(render(deps))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	cmd.Flags().IntVar(&limit, "limit", 0, "限制显示数量 (0=全部)")
	return cmd
}

func searchCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "搜索模块，支持模糊匹配",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			modules, err := db.FindModules(args[0])
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(modules)
			}

			if len(modules) == 0 {
				fmt.Printf("未找到匹配 %q 的模块\n", args[0])
				return nil
			}
			for _, m := range modules {
				if tag := display.Tag(m); tag != "" {
					fmt.Printf("%s  [%s]\n", m.Source, tag)
				} else {
					fmt.Println(m.Source)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	return cmd
}

func statsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "显示数据库统计信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(stats)
			}

			fmt.Printf("模块:     %d\n", stats.Modules)
			fmt.Printf("依赖:     %d\n", stats.Dependencies)
			fmt.Printf("循环依赖: %d\n", stats.Circular)
			fmt.Printf("违规依赖: %d\n", stats.Violations)
			if !stats.LastCruise.IsZero() {
				fmt.Printf("最近分析: %s\n", stats.LastCruise.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	return cmd
}
