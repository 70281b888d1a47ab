package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/cruiser/internal/analyzer"
	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/export"
	"github.com/zheng/cruiser/internal/gather"
	"github.com/zheng/cruiser/internal/storage"
)

const outputTypeSQLite = "sqlite"

func cruiseCmd() *cobra.Command {
	var flags cruiseFlags
	var changedBase string

	cmd := &cobra.Command{
		Use:   "cruise [paths...]",
		Short: "分析依赖关系，检测循环依赖并按规则校验",
		Long: `分析指定文件、目录或 Go 包模式 (如 ./...) 的依赖关系。

输出格式:
  err      违规列表与统计 (默认)
  json     完整依赖图
  mermaid  Mermaid 流程图
  sqlite   写入数据库，供 query/impact/mcp 使用`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			seeds := args
			if len(seeds) == 0 {
				seeds = []string{"."}
			}

			// Incremental mode: only cruise from changed files
			if cmd.Flags().Changed("changed") {
				exts, _ := extensionsFor(s.opts.System)
				changes, err := gather.ChangedFiles(".", changedBase, exts)
				if err != nil {
					return fmt.Errorf("获取 git 变更失败: %w", err)
				}
				if !changes.HasChanges() {
					fmt.Fprintln(os.Stderr, "没有变更的源文件")
					return nil
				}
				fmt.Fprintf(os.Stderr, "增量分析: %s\n", changes)
				seeds = changes.Seeds(".")
			}

			res, err := runCruise(seeds, s, func(r *cruise.Result) (*cruise.Result, error) {
				return r, writeOutput(r, &s.opts)
			})
			if err != nil {
				return err
			}

			if res.Summary.TotalCruised == 0 {
				fmt.Fprintln(os.Stderr, "警告: 没有找到可分析的源文件")
			}
			if res.Summary.HasErrors() {
				return fmt.Errorf("发现 %d 个 error 级别的依赖违规", res.Summary.Error)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&changedBase, "changed", "", "只分析相对于指定 git 版本变更的文件 (--changed=<base>，默认 HEAD)")
	cmd.Flags().Lookup("changed").NoOptDefVal = "HEAD"
	return cmd
}

// runCruise gathers, extracts and assembles the graph for seeds.
func runCruise(seeds []string, s *settings, next cruise.Continuation) (*cruise.Result, error) {
	exts, err := extensionsFor(s.opts.System)
	if err != nil {
		return nil, err
	}

	g, err := gather.New(gather.Options{
		BaseDir:      ".",
		Exclude:      s.opts.Exclude,
		Extensions:   exts,
		IncludeTests: s.includeTests,
		NoGitignore:  s.noGitignore,
	})
	if err != nil {
		return nil, err
	}

	x, err := analyzer.New()
	if err != nil {
		return nil, fmt.Errorf("初始化解析器失败: %w", err)
	}
	defer x.Close()

	return cruise.New(g, x).Cruise(seeds, &s.opts, next)
}

// writeOutput renders res in the configured output type.
func writeOutput(res *cruise.Result, opts *cruise.Options) error {
	outputType := opts.OutputType
	if outputType == "" {
		outputType = export.TypeErr
	}

	if outputType == outputTypeSQLite {
		path := opts.OutputTo
		if path == "" {
			path = DbPath
		}
		return saveResult(path, res)
	}

	var w io.Writer = os.Stdout
	if opts.OutputTo != "" && opts.OutputTo != "-" {
		f, err := os.Create(opts.OutputTo)
		if err != nil {
			return fmt.Errorf("创建输出文件失败: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export.NewExporter(opts.Prefix).Export(w, res, outputType)
}

func saveResult(path string, res *cruise.Result) error {
	db, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	defer db.Close()

	if err := db.SaveResult(res); err != nil {
		return fmt.Errorf("保存结果失败: %w", err)
	}
	fmt.Fprintf(os.Stderr, "已写入 %s: %d 模块, %d 依赖\n", path, res.Summary.TotalCruised, res.Summary.TotalDependenciesCruised)
	return nil
}
