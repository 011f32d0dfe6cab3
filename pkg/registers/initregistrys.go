package registers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/varnishstat-agent/pkg/logger"
)

// AgentImpl 实现 registers.Agent 接口
type AgentImpl struct {
	collectors []Collector
	interval   time.Duration
	ticker     *time.Ticker
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
}

// NewRegistry 创建采集器注册器
func NewRegistry(interval time.Duration) *AgentImpl {
	return &AgentImpl{
		collectors: make([]Collector, 0),
		interval:   interval,
	}
}

// Register 注册采集器
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// Collectors 返回已注册采集器的副本
func (r *AgentImpl) Collectors() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]Collector, len(r.collectors))
	copy(copied, r.collectors)
	return copied
}

// InitAll 初始化所有采集器，任一失败即返回
func (r *AgentImpl) InitAll() error {
	for _, coll := range r.Collectors() {
		if err := coll.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}
	return nil
}

// Start 初始化采集器并启动定时采集，采集在后台 goroutine 中串行执行，
// 上一轮未结束时到期的 tick 被丢弃
func (r *AgentImpl) Start(ctx context.Context) error {
	if err := r.InitAll(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.ticker = time.NewTicker(r.interval)
	ticker := r.ticker
	r.mu.Unlock()

	logger.Debug("collector metrics started", zap.String("name", "collector-registry"),
		zap.Duration("interval", r.interval),
		zap.Int("registered_collectors_count", len(r.Collectors())))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()

		// 首次采集（失败仅警告）
		if err := r.CollectAll(loopCtx); err != nil {
			logger.Warn("first collection failed", zap.String("name", "collector-registry"), zap.Error(err))
		}

		for {
			select {
			case <-ticker.C:
				_ = r.CollectAll(loopCtx) // 单采集器失败不影响整体
			case <-loopCtx.Done():
				logger.Info("collector metrics stopped", zap.String("name", "collector-registry"), zap.Error(context.Cause(loopCtx)))
				return
			}
		}
	}()
	return nil
}

// RunOnce 初始化、采集一次并关闭所有采集器
func (r *AgentImpl) RunOnce(ctx context.Context) error {
	if err := r.InitAll(); err != nil {
		return err
	}
	err := r.CollectAll(ctx)
	return multierr.Append(err, r.CloseAll())
}

// Shutdown 优雅关闭采集器：停止循环，等待进行中的采集结束（受 ctx 限制），再关闭采集器
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	logger.Info("starting to shutdown collector metrics", zap.String("name", "collector-registry"))

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("collection still running at shutdown", zap.Error(ctx.Err()))
	}

	return r.CloseAll()
}

// CollectAll 依次执行所有采集器，错误合并返回
func (r *AgentImpl) CollectAll(ctx context.Context) error {
	var errs error
	for _, collector := range r.Collectors() {
		if err := collector.Collect(ctx); err != nil {
			logger.Warn("collection failed", zap.String("name", collector.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// CloseAll 关闭所有采集器，不因单个失败中断
func (r *AgentImpl) CloseAll() error {
	var errs error
	for _, collector := range r.Collectors() {
		logger.Debug("closing collector", zap.String("name", collector.Name()))
		if err := collector.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", collector.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
