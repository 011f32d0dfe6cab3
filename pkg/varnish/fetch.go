package varnish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

const (
	// DefaultMaxOutput stdout 上限，超出视为调用失败
	DefaultMaxOutput = 16 << 20
	maxStderrBytes   = 8 << 10
)

// Output 一次 varnishstat 调用的结果：成功时 Data 为 stdout，失败时为 stdout+stderr
type Output struct {
	Status int
	Data   []byte
}

// Fetcher 按实例调用 varnishstat，实例为空时不带 -n
type Fetcher interface {
	Fetch(ctx context.Context, instance string) (Output, error)
}

// CommandFetcher 调用 varnishstat 可执行文件
type CommandFetcher struct {
	command   string
	timeout   time.Duration
	killGrace time.Duration
	maxOutput int
}

// NewCommandFetcher timeout 透传给 varnishstat -t；killGrace > 0 时超过 timeout+killGrace 强制结束子进程
func NewCommandFetcher(command string, timeout, killGrace time.Duration) *CommandFetcher {
	return &CommandFetcher{command: command, timeout: timeout, killGrace: killGrace, maxOutput: DefaultMaxOutput}
}

// WithMaxOutput 调整 stdout 上限（字节）
func (f *CommandFetcher) WithMaxOutput(n int) *CommandFetcher {
	f.maxOutput = n
	return f
}

// Args 实例对应的 varnishstat 参数
func (f *CommandFetcher) Args(instance string) []string {
	args := []string{"-j", "-t " + strconv.FormatFloat(f.timeout.Seconds(), 'f', -1, 64)}
	if instance != "" {
		args = append(args, "-n"+instance)
	}
	return args
}

func (f *CommandFetcher) Fetch(ctx context.Context, instance string) (Output, error) {
	runCtx := ctx
	if f.killGrace > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, f.timeout+f.killGrace)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, f.command, f.Args(instance)...)
	// 多留 1 字节用于判断是否超限
	stdout := &cappedBuffer{max: f.maxOutput + 1}
	stderr := &cappedBuffer{max: maxStderrBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if f.killGrace > 0 {
		cmd.WaitDelay = f.killGrace
	}

	err := cmd.Run()
	if err == nil {
		if stdout.Len() > f.maxOutput {
			err = fmt.Errorf("%w: more than %d bytes on stdout", ErrOutputTooLarge, f.maxOutput)
			out := Output{Status: FailureStatus, Data: []byte(err.Error())}
			return out, &FetchError{Instance: instance, Status: out.Status, Output: out.Data, Err: err}
		}
		return Output{Status: 0, Data: stdout.Bytes()}, nil
	}

	combined := append(append([]byte{}, stdout.Bytes()...), stderr.Bytes()...)

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		out := Output{Status: FailureStatus, Data: []byte(err.Error())}
		return out, &FetchError{Instance: instance, Status: out.Status, Output: out.Data, Err: err}
	}

	status := exitErr.ExitCode()
	if status < 0 {
		// 被信号结束，包括自身的超时
		status = FailureStatus
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("killed after %s: %w", f.timeout+f.killGrace, runCtx.Err())
		}
	}
	out := Output{Status: status, Data: combined}
	return out, &FetchError{Instance: instance, Status: status, Output: combined, Err: err}
}

type cappedBuffer struct {
	buffer bytes.Buffer
	max    int
}

// Write 最多保留 max 字节，其余丢弃，子进程不会因管道写满而阻塞
func (b *cappedBuffer) Write(payload []byte) (int, error) {
	if b.max <= 0 || b.buffer.Len() >= b.max {
		return len(payload), nil
	}

	remaining := b.max - b.buffer.Len()
	if len(payload) > remaining {
		_, _ = b.buffer.Write(payload[:remaining])
		return len(payload), nil
	}

	_, _ = b.buffer.Write(payload)
	return len(payload), nil
}

func (b *cappedBuffer) Len() int {
	return b.buffer.Len()
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buffer.Bytes()
}
