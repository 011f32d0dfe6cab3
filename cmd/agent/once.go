package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/logger"
	"github.com/varnishstat-agent/pkg/registers"
)

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Poll every instance once and print the samples (standalone)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

// runOnce standalone 模式：print 输出，日志只写 stdout，采集失败返回错误
func runOnce(ctx context.Context, cfg *config.Config, out io.Writer) error {
	cfg.Sink.Type = config.SinkPrint
	cfg.Log.File = false
	cfg.Log.Stderr = false

	log, err := logger.NewWithWriter(cfg.Log, out)
	if err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer func() { _ = log.Sync() }()
	undo := zap.ReplaceGlobals(log)
	defer undo()

	_, agent, err := registers.InitPromRegistry(cfg, registers.Options{Out: out})
	if err != nil {
		return err
	}
	return agent.RunOnce(ctx)
}
