package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Duration("monitor.interval", defaultCfg.Monitor.Interval, "-> Collection interval | 采集间隔")
}

func initVarnishFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	prefix := "varnish."

	f.String(prefix+"command", defaultCfg.Varnish.Command, "-> varnishstat binary | varnishstat 命令路径")
	f.Duration(prefix+"timeout", defaultCfg.Varnish.Timeout, "-> Value passed to varnishstat -t | varnishstat -t 超时")
	f.Duration(prefix+"kill_grace", defaultCfg.Varnish.KillGrace, "-> Kill varnishstat this long after timeout, 0 disables | 超时后强制结束的宽限时间")
	f.String(prefix+"mode", defaultCfg.Varnish.Mode, "-> Polling mode [per-instance,single] | 采集模式")
	f.StringSlice(prefix+"instances", defaultCfg.Varnish.Instances, "-> Static instance names, skips discovery | 静态实例列表")
	f.String(prefix+"discovery.glob", defaultCfg.Varnish.Discovery.Glob, "-> Instance marker glob | 实例标记文件 glob")
	f.String(prefix+"discovery.pattern", defaultCfg.Varnish.Discovery.Pattern, "-> Instance name regexp (first group) | 实例名正则")
	f.Bool(prefix+"discovery.require_running", defaultCfg.Varnish.Discovery.RequireRunning, "-> Keep only instances with a running varnishd | 只保留运行中的实例")
}

func initSinkFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("sink.type", defaultCfg.Sink.Type, "-> Sample sink [prometheus,collectd,print] | 指标输出目标")
	f.String("sink.collectd.hostname", defaultCfg.Sink.Collectd.Hostname, "-> Host name used in PUTVAL | PUTVAL 主机名")
}
