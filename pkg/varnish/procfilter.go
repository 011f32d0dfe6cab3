package varnish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// varnish 6 起 -n 的默认值
const defaultInstanceName = "varnishd"

// CmdlineLister 返回运行中 varnishd 进程的命令行参数
type CmdlineLister func(ctx context.Context) ([][]string, error)

// RunningFilter 过滤掉没有 varnishd 进程的实例（残留的标记目录）
type RunningFilter struct {
	source   InstanceSource
	list     CmdlineLister
	hostname func() (string, error)
	logger   *zap.Logger
}

// NewRunningFilter list 为 nil 时读取进程表
func NewRunningFilter(source InstanceSource, list CmdlineLister, logger *zap.Logger) *RunningFilter {
	if list == nil {
		list = VarnishdCmdlines
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunningFilter{source: source, list: list, hostname: os.Hostname, logger: logger}
}

func (f *RunningFilter) Instances(ctx context.Context) ([]string, error) {
	names, err := f.source.Instances(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return names, nil
	}

	cmdlines, err := f.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list varnishd processes: %w", err)
	}

	running := make(map[string]struct{}, len(cmdlines))
	for _, args := range cmdlines {
		name, ok := instanceArg(args)
		if ok {
			running[name] = struct{}{}
			continue
		}
		running[defaultInstanceName] = struct{}{}
		if host, err := f.hostname(); err == nil && host != "" {
			running[host] = struct{}{}
		}
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := running[name]; !ok {
			f.logger.Info("skipping instance without running varnishd", zap.String("instance", name))
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// instanceArg 取 -n 参数的 basename
func instanceArg(args []string) (string, bool) {
	for i, arg := range args {
		switch {
		case arg == "-n" && i+1 < len(args):
			return filepath.Base(args[i+1]), true
		case strings.HasPrefix(arg, "-n") && len(arg) > 2:
			return filepath.Base(arg[2:]), true
		}
	}
	return "", false
}

// VarnishdCmdlines 通过 gopsutil 读取进程表
func VarnishdCmdlines(ctx context.Context) ([][]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var out [][]string
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name != defaultInstanceName {
			continue
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, args)
	}
	return out, nil
}
