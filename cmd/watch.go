package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/export"
	"github.com/zheng/cruiser/internal/watcher"
)

func watchCmd() *cobra.Command {
	var flags cruiseFlags
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "监控文件变更，自动重新分析并更新数据库",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}
			exts, err := extensionsFor(s.opts.System)
			if err != nil {
				return err
			}

			run := func() (*cruise.Result, error) {
				return runCruise(roots, s, func(r *cruise.Result) (*cruise.Result, error) {
					return r, saveResult(DbPath, r)
				})
			}

			// Initial cruise
			fmt.Println("执行初始分析...")
			res, err := run()
			if err != nil {
				return fmt.Errorf("初始分析失败: %w", err)
			}
			printViolations(res)

			w, err := watcher.New(roots, run,
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithExtensions(exts),
				watcher.WithIncludeTests(s.includeTests),
				watcher.WithOnCruiseStart(func(changed []string) {
					fmt.Printf("[%s] 检测到 %d 个文件变更，开始分析...\n", time.Now().Format("15:04:05"), len(changed))
				}),
				watcher.WithOnCruiseDone(func(res *cruise.Result, duration time.Duration) {
					fmt.Printf("[%s] 分析完成 (耗时 %v)\n", time.Now().Format("15:04:05"), duration.Round(time.Millisecond))
					printViolations(res)
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] 错误: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("创建监控失败: %w", err)
			}

			fmt.Printf("\n开始监控: %v\n", roots)
			fmt.Printf("数据库路径: %s\n", DbPath)
			fmt.Printf("防抖延迟: %dms\n", debounceMs)
			fmt.Println("\n按 Ctrl+C 停止...")
			fmt.Println()

			w.Start()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\n停止监控...")
			return w.Stop()
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "防抖延迟（毫秒）")
	return cmd
}

func printViolations(res *cruise.Result) {
	if err := export.NewExporter("").Err(os.Stdout, res); err != nil {
		fmt.Fprintf(os.Stderr, "输出失败: %v\n", err)
	}
}
