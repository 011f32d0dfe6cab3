package sink

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/varnishstat-agent/pkg/varnish"
)

// 替换会破坏 collectd 标识的字符
var identifierReplacer = strings.NewReplacer("/", "_", `"`, "_", "\n", "_")

// CollectdSink collectd exec 插件协议输出：
//
//	PUTVAL "host/varnishstat-vhost1/counter-MAIN.uptime" interval=10 N:12345
type CollectdSink struct {
	mu       sync.Mutex
	w        io.Writer
	host     string
	interval time.Duration
}

func NewCollectdSink(w io.Writer, host string, interval time.Duration) *CollectdSink {
	return &CollectdSink{w: w, host: host, interval: interval}
}

// Identifier 样本的 host/plugin[-instance]/type[-instance] 标识
func (s *CollectdSink) Identifier(sample varnish.Sample) string {
	plugin := sample.Plugin
	if sample.PluginInstance != "" {
		plugin += "-" + sample.PluginInstance
	}
	typ := string(sample.Kind)
	if sample.TypeInstance != "" {
		typ += "-" + sample.TypeInstance
	}
	return identifierReplacer.Replace(s.host) + "/" + identifierReplacer.Replace(plugin) + "/" + identifierReplacer.Replace(typ)
}

func (s *CollectdSink) Dispatch(_ context.Context, sample varnish.Sample) error {
	if _, err := sample.Float(); err != nil {
		return err
	}
	line := fmt.Sprintf("PUTVAL %q interval=%s N:%s\n",
		s.Identifier(sample),
		strconv.FormatFloat(s.interval.Seconds(), 'f', -1, 64),
		sample.Value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, line); err != nil {
		return fmt.Errorf("write PUTVAL: %w", err)
	}
	return nil
}
