package agent

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/varnishstat-agent/cmd/server"
	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/logger"
	"github.com/varnishstat-agent/pkg/registers"
	"github.com/varnishstat-agent/pkg/signal"
	"github.com/varnishstat-agent/pkg/util"
)

// Version 构建时通过 -ldflags "-X" 注入
var Version = "dev"

// NewRootCmd 构建命令树：守护进程（默认）、once、config
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "varnishstat-agent",
		Short:         "Polls varnishstat and ships every counter to Prometheus, collectd or stdout",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringP("config", "c", "configs/config.yaml", "配置文件路径")
	// 注册分组 flag
	initServerFlags(root)
	initMonitorFlags(root)
	initVarnishFlags(root)
	initSinkFlags(root)
	initLogFlags(root)

	root.AddCommand(newOnceCmd(), newConfigCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, out io.Writer) error {
	// collectd exec 协议占用 stdout，控制台日志改到 stderr
	if cfg.Sink.Type == config.SinkCollectd {
		cfg.Log.Stderr = true
	}

	log, err := logger.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer logger.Sync()

	registry, agent, err := registers.InitPromRegistry(cfg, registers.Options{EnableProcess: true, Out: out})
	if err != nil {
		return err
	}

	var httpServer *server.Server
	if cfg.Sink.Type == config.SinkPrometheus {
		util.FprintBanner(out, "varnishstat", "cyan",
			fmt.Sprintf("varnishstat-agent %s, metrics on http://%s/metrics", Version, cfg.Server.Addr))
		httpServer = server.NewHTTPServer(cfg, log, registry, Version)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("start HTTP server failed: %w", err)
		}
	}

	if err := agent.Start(ctx); err != nil {
		if httpServer != nil {
			_ = httpServer.Shutdown(ctx)
		}
		return err
	}
	logger.Info("varnishstat agent started",
		zap.String("mode", cfg.Varnish.Mode),
		zap.String("sink", cfg.Sink.Type),
		zap.Duration("interval", cfg.Monitor.Interval))

	return signal.WaitForShutdown(ctx, log, func(ctx context.Context) error {
		// 关闭顺序：HTTP服务 → 采集器
		var errs error
		if httpServer != nil {
			errs = multierr.Append(errs, httpServer.Shutdown(ctx))
		}
		return multierr.Append(errs, agent.Shutdown(ctx))
	})
}
