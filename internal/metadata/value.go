// Package metadata implements the open key-value analytics bag attached
// to a lead, and the merge rules applied when new session signals arrive.
package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
)

// Value is a tagged scalar stored in a Bag. Keeping the bag to scalars
// keeps the merge rules total: there is no nested structure to reconcile.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

// String returns a string-kinded value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number-kinded value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a number-kinded value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool returns a bool-kinded value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Time returns a time-kinded value, truncated to UTC.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// Kind reports the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string form of the value.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.num == math.Trunc(v.num) {
			return fmt.Sprintf("%d", int64(v.num))
		}
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	}
	return ""
}

// AsNumber returns the numeric form of the value, or 0 for non-numbers.
func (v Value) AsNumber() float64 {
	if v.kind == KindNumber {
		return v.num
	}
	return 0
}

// AsInt returns the value truncated to an integer.
func (v Value) AsInt() int64 { return int64(v.AsNumber()) }

// AsBool returns the bool form of the value, or false for non-bools.
func (v Value) AsBool() bool { return v.kind == KindBool && v.b }

// AsTime returns the time form of the value, or the zero time.
func (v Value) AsTime() time.Time {
	if v.kind == KindTime {
		return v.t
	}
	return time.Time{}
}

// IsZero reports whether the value is empty for merge purposes: the empty
// string, zero number, false bool, and zero time all count as absent.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindString:
		return v.str == ""
	case KindNumber:
		return v.num == 0
	case KindBool:
		return !v.b
	case KindTime:
		return v.t.IsZero()
	}
	return true
}

// MarshalJSON encodes the value as the matching JSON scalar. Times are
// encoded as RFC 3339 strings so the bag stays portable across stores.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339))
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes a JSON scalar into a tagged value. Strings that
// parse as RFC 3339 timestamps become time-kinded.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			*v = Time(t)
			return nil
		}
		*v = String(x)
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	case nil:
		*v = Value{}
	default:
		return fmt.Errorf("metadata: unsupported value %T", raw)
	}
	return nil
}
