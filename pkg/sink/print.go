package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/varnishstat-agent/pkg/varnish"
)

// PrintSink 每个样本输出一行 standalone 文本
type PrintSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrintSink(w io.Writer) *PrintSink {
	return &PrintSink{w: w}
}

func (s *PrintSink) Dispatch(_ context.Context, sample varnish.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, sample.String()); err != nil {
		return fmt.Errorf("print sample: %w", err)
	}
	return nil
}
