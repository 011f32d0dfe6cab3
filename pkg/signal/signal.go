package signal

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout 关闭逻辑的最长等待时间
const ShutdownTimeout = 5 * time.Second

// WaitForShutdown 监听退出信号（SIGINT/SIGTERM）或 ctx 取消，执行优雅关闭
// shutdownFunc 收到带超时的 ctx，返回其错误
func WaitForShutdown(ctx context.Context, logger *zap.Logger, shutdownFunc func(ctx context.Context) error) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 阻塞等待信号
	<-sigCtx.Done()
	logger.Info("received shutdown signal", zap.Error(context.Cause(sigCtx)))

	// 超时控制关闭逻辑
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if err := shutdownFunc(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("shutdown completed")
	return nil
}
