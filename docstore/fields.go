// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"strings"
	"time"
)

// String returns the field as a string, or "" when absent or null.
func (f Fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

// StringPtr returns nil for absent, null or non-string values.
func (f Fields) StringPtr(key string) *string {
	s, ok := f[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func (f Fields) Float(key string) float64 {
	n, _ := Number(f[key])
	return n
}

func (f Fields) Int(key string) int64 {
	n, _ := Number(f[key])
	return int64(n)
}

func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

func (f Fields) Time(key string) time.Time {
	if t, ok := f[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}

func (f Fields) TimePtr(key string) *time.Time {
	t, ok := f[key].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

// Number converts any integer or float field value to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Compare orders two field values of the same kind. Numbers of any width
// compare numerically; ok is false when the values are not comparable.
func Compare(a, b any) (cmp int, ok bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		if a == nil {
			return -1, true
		}
		return 1, true
	}
	if x, isNum := Number(a); isNum {
		y, ok := Number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

// Matches reports whether the fields satisfy every predicate. A missing
// field behaves like null.
func Matches(f Fields, where []Predicate) bool {
	for _, p := range where {
		c, ok := Compare(f[p.Field], p.Value)
		if !ok {
			if p.Op == OpNe {
				continue
			}
			return false
		}
		var hit bool
		switch p.Op {
		case OpEq:
			hit = c == 0
		case OpNe:
			hit = c != 0
		case OpLt:
			hit = c < 0
		case OpLte:
			hit = c <= 0
		case OpGt:
			hit = c > 0
		case OpGte:
			hit = c >= 0
		}
		if !hit {
			return false
		}
	}
	return true
}

// MatchesPrecondition evaluates cond against the current document, where
// exists reports whether the document is present.
func MatchesPrecondition(cur Fields, exists bool, cond *Precondition) bool {
	if cond == nil {
		return true
	}
	if cond.MustNotExist {
		return !exists
	}
	if !exists {
		return false
	}
	for k, v := range cond.Match {
		if c, ok := Compare(cur[k], v); !ok || c != 0 {
			return false
		}
	}
	return true
}

// After reports whether doc sorts strictly after the cursor for the order.
func After(doc Document, order Order, cur *Cursor) bool {
	if cur == nil {
		return true
	}
	c, _ := Compare(doc.Fields[order.Field], cur.Value)
	if c == 0 {
		c = strings.Compare(doc.ID, cur.ID)
	}
	if order.Desc {
		return c < 0
	}
	return c > 0
}

// CursorFor builds the cursor that resumes after doc.
func CursorFor(doc Document, order Order) *Cursor {
	return &Cursor{Value: doc.Fields[order.Field], ID: doc.ID}
}
