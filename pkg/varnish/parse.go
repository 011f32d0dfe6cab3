package varnish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Snapshot 解析后的 varnishstat -j 输出
type Snapshot struct {
	// 扁平格式（varnish < 6.5）为 0，counters 格式取文档中的 version
	Version   int
	Timestamp string
	Fields    []Field
}

type fieldRecord struct {
	Description string      `json:"description"`
	Flag        string      `json:"flag"`
	Format      string      `json:"format"`
	Value       json.Number `json:"value"`
}

// Parse 解析 varnishstat JSON，支持扁平格式（顶层即字段）和带版本的格式
// （{"version", "timestamp", "counters"}），字段按名称排序返回
func Parse(data []byte) (*Snapshot, error) {
	top, err := decodeObject(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	snap := &Snapshot{}
	if raw, ok := top[TimestampKey]; ok {
		snap.Timestamp = timestampString(raw)
	}

	records := top
	if counters, ok := top["counters"]; ok && isVersioned(top) {
		if err := json.Unmarshal(top["version"], &snap.Version); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("version: %w", err)}
		}
		records, err = decodeObject(counters)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("counters: %w", err)}
		}
	} else {
		delete(records, TimestampKey)
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	snap.Fields = make([]Field, 0, len(names))
	for _, name := range names {
		var rec fieldRecord
		dec := json.NewDecoder(bytes.NewReader(records[name]))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("field %q: %w", name, err)}
		}
		snap.Fields = append(snap.Fields, Field{
			Name:        name,
			Flag:        rec.Flag,
			Format:      rec.Format,
			Value:       rec.Value,
			Description: rec.Description,
		})
	}
	return snap, nil
}

// Classify 字段到样本类型的映射：位图字段 ok 为 false，c/g 以外的 flag 返回错误
func Classify(f Field) (kind Kind, ok bool, err error) {
	if f.Format == FormatBitmap {
		return "", false, nil
	}
	kind, found := flagKinds[f.Flag]
	if !found {
		return "", false, fmt.Errorf("field %q: %w %q", f.Name, ErrUnknownFlag, f.Flag)
	}
	if f.Value == "" {
		return "", false, fmt.Errorf("field %q: %w", f.Name, ErrMissingValue)
	}
	return kind, true, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("document is not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return obj, nil
}

func isVersioned(top map[string]json.RawMessage) bool {
	_, ok := top["version"]
	return ok
}

func timestampString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
