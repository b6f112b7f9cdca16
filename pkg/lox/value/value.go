// Package value defines the closed set of values a Lox program can produce.
//
// The same union is carried by literal tokens, literal AST nodes, and every
// run-time result of the evaluator. The set is sealed: only the four types in
// this file implement Value.
package value

import (
	"math"
	"strconv"
)

// Type names a value variant
type Type string

const (
	NUMBER_VAL  Type = "NUMBER"
	TEXT_VAL    Type = "TEXT"
	BOOLEAN_VAL Type = "BOOLEAN"
	NIL_VAL     Type = "NIL"
)

// Value represents all values in the language
type Value interface {
	Type() Type
	Inspect() string
	sealed()
}

// Number is a double-precision number
type Number struct {
	Value float64
}

func (n Number) Type() Type      { return NUMBER_VAL }
func (n Number) Inspect() string { return formatNumber(n.Value) }
func (Number) sealed()           {}

// Text is a string
type Text struct {
	Value string
}

func (t Text) Type() Type      { return TEXT_VAL }
func (t Text) Inspect() string { return t.Value }
func (Text) sealed()           {}

// Boolean is true or false
type Boolean struct {
	Value bool
}

func (b Boolean) Type() Type      { return BOOLEAN_VAL }
func (b Boolean) Inspect() string { return strconv.FormatBool(b.Value) }
func (Boolean) sealed()           {}

// Nothing is the nil value
type Nothing struct{}

func (Nothing) Type() Type      { return NIL_VAL }
func (Nothing) Inspect() string { return "nil" }
func (Nothing) sealed()         {}

var (
	Nil   Value = Nothing{}
	True  Value = Boolean{Value: true}
	False Value = Boolean{Value: false}
)

// FromBool returns the shared Boolean for b
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Truthy reports whether v counts as true in a condition.
// Only false and nil are falsy; 0 and "" are truthy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Boolean:
		return v.Value
	case Nothing, nil:
		return false
	case Number, Text:
		return true
	default:
		return true
	}
}

// Equal compares two values. Values of different variants are never equal
// and nil equals only nil.
func Equal(a, b Value) bool {
	if a == nil {
		a = Nil
	}
	if b == nil {
		b = Nil
	}
	switch a := a.(type) {
	case Number:
		bn, ok := b.(Number)
		return ok && a.Value == bn.Value
	case Text:
		bt, ok := b.(Text)
		return ok && a.Value == bt.Value
	case Boolean:
		bb, ok := b.(Boolean)
		return ok && a.Value == bb.Value
	case Nothing:
		_, ok := b.(Nothing)
		return ok
	default:
		return false
	}
}

// Stringify renders v the way print does. A missing value renders as nil.
func Stringify(v Value) string {
	if v == nil {
		return Nil.Inspect()
	}
	return v.Inspect()
}

// formatNumber drops the fractional part of integral numbers ("4" not "4.0")
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
