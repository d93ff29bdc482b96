package audit

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// chainFields are excluded from the canonical form; they are derived from it.
// hash_chain_index stays in so an event cannot be renumbered.
var chainFields = map[string]bool{
	"hash":      true,
	"hash_prev": true,
}

// Canonicalize returns a deterministic JSON string for hashing a decoded
// event. Chain fields are dropped, keys are sorted recursively, RFC 3339
// timestamps are normalized to UTC and the output is compact.
func Canonicalize(fields map[string]any) (string, error) {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if chainFields[k] {
			continue
		}
		clean[k] = normalize(v)
	}
	var buf bytes.Buffer
	if err := writeSorted(&buf, clean); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// canonicalEvent renders e the same way a decoded NDJSON line would be.
func canonicalEvent(e Event) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	return Canonicalize(fields)
}

// normalize returns a copy of v with RFC 3339 strings rewritten in UTC.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = normalize(vv)
		}
		return m
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = normalize(t[i])
		}
		return arr
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC().Format(time.RFC3339Nano)
		}
		return t
	default:
		return t
	}
}

func writeSorted(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeSorted(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeSorted(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
