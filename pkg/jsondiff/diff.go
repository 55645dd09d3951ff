// Package jsondiff compares two JSON documents and lists leaf-level changes by path.
package jsondiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind describes how a path differs between two documents.
type Kind string

const (
	Added   Kind = "added"
	Removed Kind = "removed"
	Changed Kind = "changed"
)

// Change is a single difference. Left is nil for additions, Right is nil for removals.
type Change struct {
	Path   string      `json:"path"`
	Left   interface{} `json:"left,omitempty"`
	Right  interface{} `json:"right,omitempty"`
	Change Kind        `json:"change"`
}

// Diff compares two raw JSON documents. Changes are sorted by path.
func Diff(left, right []byte) ([]Change, error) {
	l, err := decode(left)
	if err != nil {
		return nil, fmt.Errorf("decode left: %w", err)
	}
	r, err := decode(right)
	if err != nil {
		return nil, fmt.Errorf("decode right: %w", err)
	}

	changes := make([]Change, 0)
	walk("$", l, r, &changes)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// DiffValues marshals both values to JSON and compares them.
func DiffValues(left, right interface{}) ([]Change, error) {
	lb, err := json.Marshal(left)
	if err != nil {
		return nil, err
	}
	rb, err := json.Marshal(right)
	if err != nil {
		return nil, err
	}
	return Diff(lb, rb)
}

func decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// normalize turns number literals into float64 so 150.50 and 150.5 compare equal.
// Strings are left alone: "1000" and 1000 differ.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			t[k] = normalize(child)
		}
		return t
	case []interface{}:
		for i, child := range t {
			t[i] = normalize(child)
		}
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func walk(path string, l, r interface{}, out *[]Change) {
	switch lv := l.(type) {
	case map[string]interface{}:
		if rv, ok := r.(map[string]interface{}); ok {
			walkObject(path, lv, rv, out)
			return
		}
	case []interface{}:
		if rv, ok := r.([]interface{}); ok {
			walkArray(path, lv, rv, out)
			return
		}
	}

	if !reflect.DeepEqual(l, r) {
		*out = append(*out, Change{Path: path, Left: l, Right: r, Change: Changed})
	}
}

func walkObject(path string, l, r map[string]interface{}, out *[]Change) {
	for k, lv := range l {
		p := join(path, k)
		rv, ok := r[k]
		if !ok {
			*out = append(*out, Change{Path: p, Left: lv, Change: Removed})
			continue
		}
		walk(p, lv, rv, out)
	}
	for k, rv := range r {
		if _, ok := l[k]; !ok {
			*out = append(*out, Change{Path: join(path, k), Right: rv, Change: Added})
		}
	}
}

func walkArray(path string, l, r []interface{}, out *[]Change) {
	n := len(l)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		p := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case i >= len(r):
			*out = append(*out, Change{Path: p, Left: l[i], Change: Removed})
		case i >= len(l):
			*out = append(*out, Change{Path: p, Right: r[i], Change: Added})
		default:
			walk(p, l[i], r[i], out)
		}
	}
}

func join(path, key string) string {
	if key == "" || strings.ContainsAny(key, ".[]\"") {
		return fmt.Sprintf("%s[%q]", path, key)
	}
	return path + "." + key
}
