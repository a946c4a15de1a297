// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package infect

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a number that may be undefined, e.g. a reproduction rate on a day
// when nobody was infected.
type Value struct {
	V     float64
	Valid bool
}

// Undefined is the zero Value.
var Undefined = Value{}

// Defined returns a valid Value holding v, or Undefined if v is NaN or infinite.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Value{V: v, Valid: true}
}

// String returns v formatted for gnuplot data files, where "?" marks missing points.
func (v Value) String() string {
	if !v.Valid {
		return "?"
	}
	return strconv.FormatFloat(v.V, 'g', -1, 64)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as an undefined value.
func (v *Value) UnmarshalJSON(b []byte) error {
	var p *float64
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p == nil {
		*v = Undefined
	} else {
		*v = Defined(*p)
	}
	return nil
}

// Values wraps each element of vals in a Value.
func Values(vals []float64) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = Defined(v)
	}
	return out
}
