// Package value implements the tagged-union runtime value model shared by
// the AST, evaluator and event bus (§3 "Value").
package value

import (
	"fmt"
	"sort"
	"time"
)

// Kind discriminates a Value's payload.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindDuration
	KindList
	KindMap
	KindError
	KindUnit
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindDuration:
		return "Duration"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindError:
		return "Error"
	case KindUnit:
		return "Unit"
	default:
		return "Unknown"
	}
}

// Value is an immutable tagged union. Construct instances with the Of*
// helpers below rather than composite literals so the Kind tag can never
// drift from the populated field.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	d    time.Duration
	list []Value
	m    map[string]Value
	err  string
}

func Null() Value                { return Value{kind: KindNull} }
func Unit() Value                { return Value{kind: KindUnit} }
func OfBool(b bool) Value        { return Value{kind: KindBoolean, b: b} }
func OfInt(i int64) Value        { return Value{kind: KindInteger, i: i} }
func OfFloat(f float64) Value    { return Value{kind: KindFloat, f: f} }
func OfString(s string) Value    { return Value{kind: KindString, s: s} }
func OfDuration(d time.Duration) Value { return Value{kind: KindDuration, d: d} }
func OfError(msg string) Value   { return Value{kind: KindError, err: msg} }

func OfList(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func OfMap(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)             { return v.b, v.kind == KindBoolean }
func (v Value) Int() (int64, bool)             { return v.i, v.kind == KindInteger }
func (v Value) Float() (float64, bool)         { return v.f, v.kind == KindFloat }
func (v Value) String() (string, bool)         { return v.s, v.kind == KindString }
func (v Value) Duration() (time.Duration, bool) { return v.d, v.kind == KindDuration }
func (v Value) ErrMessage() (string, bool)      { return v.err, v.kind == KindError }

func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

func (v Value) Map() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, val := range v.m {
		cp[k] = val
	}
	return cp, true
}

// Display renders a Value for prompt assembly / logging. It is not a
// round-trippable serialisation format.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUnit:
		return "()"
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindDuration:
		return v.d.String()
	case KindError:
		return fmt.Sprintf("error: %s", v.err)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Display()
		}
		return "[" + joinComma(parts) + "]"
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.m[k].Display()))
		}
		return "{" + joinComma(parts) + "}"
	default:
		return ""
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// Equal implements the structural equality rule from §3: two Values are
// equal iff same Kind and same payload (lists/maps recurse).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull, KindUnit:
		return true
	case KindBoolean:
		return a.b == b.b
	case KindInteger:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindDuration:
		return a.d == b.d
	case KindError:
		return a.err == b.err
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
