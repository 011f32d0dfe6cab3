package varnish

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFlag 字段 flag 既不是 counter 也不是 gauge
	ErrUnknownFlag = errors.New("unknown metric flag")
	// ErrNoPrefix 字段名没有大写命名空间前缀（single 模式）
	ErrNoPrefix = errors.New("field has no namespace prefix")
	// ErrMissingValue 需要转发的字段没有 value
	ErrMissingValue = errors.New("field has no value")
	// ErrOutputTooLarge varnishstat 输出超过上限
	ErrOutputTooLarge = errors.New("varnishstat output exceeds limit")
)

// FailureStatus varnishstat 无法执行或未正常退出时使用的状态码
const FailureStatus = 255

// FetchError varnishstat 调用失败
type FetchError struct {
	Instance string
	Status   int
	Output   []byte
	Err      error
}

func (e *FetchError) Error() string {
	out := strings.TrimSpace(string(e.Output))
	target := "varnishstat"
	if e.Instance != "" {
		target = fmt.Sprintf("varnishstat -n%s", e.Instance)
	}
	if out == "" {
		return fmt.Sprintf("%s: exit status %d: %v", target, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d: %s", target, e.Status, out)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError 输出不是合法的 varnishstat JSON
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("decode varnishstat json: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
