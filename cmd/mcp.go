package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/mcp"
	"github.com/zheng/cruiser/internal/storage"
)

func mcpCmd() *cobra.Command {
	var flags cruiseFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "启动 MCP 服务器 (stdio)，供 AI 助手查询依赖图",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			run := func(ctx context.Context, paths []string) (*cruise.Result, error) {
				return runCruise(paths, s, func(r *cruise.Result) (*cruise.Result, error) {
					return r, db.SaveResult(r)
				})
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return mcp.NewServer(db, run, Version).Run(ctx)
		},
	}

	flags.register(cmd)
	return cmd
}
