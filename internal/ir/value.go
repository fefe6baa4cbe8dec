// Package ir defines the data model this engine interprets and JITs: a
// tagged Value, Registers, the flattened Instr instruction set, and the
// Block/Function/Program aggregate, plus the Builder that assembles them
// from a textual front-end.
package ir

import (
	"fmt"
	"math"

	"tracejit/internal/tjerr"
)

// Kind tags which field of a Value is live.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindStr
	KindLoc
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindLoc:
		return "loc"
	default:
		return "unknown"
	}
}

// Value is the tagged union the interpreter operates on. Only one of
// i/f/s is meaningful, selected by Kind. Str and Loc both carry
// owned text (s) but differ in role: Str is a data-section literal,
// Loc is a symbolic label name usable only as a Cbr branch target.
type Value struct {
	kind Kind
	i    int64
	f    float32
	s    string
}

func Null() Value              { return Value{kind: KindNull} }
func IntVal(i int64) Value     { return Value{kind: KindInt, i: i} }
func FloatVal(f float32) Value { return Value{kind: KindFloat, f: f} }
func StrVal(s string) Value    { return Value{kind: KindStr, s: s} }
func LocVal(name string) Value { return Value{kind: KindLoc, s: name} }

func (v Value) Kind() Kind { return v.kind }

// AsInt returns the int64 payload, faulting with tjerr.Type if the
// value isn't an Int. The source logs a warning and proceeds with
// whatever bit pattern happens to be in the union instead of faulting;
// this re-implementation refuses instead, per the engine's error design.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, tjerr.New(tjerr.Type, "expected int, got %s", v.kind)
	}
	return v.i, nil
}

func (v Value) AsFloat() (float32, error) {
	if v.kind != KindFloat {
		return 0, tjerr.New(tjerr.Type, "expected float, got %s", v.kind)
	}
	return v.f, nil
}

func (v Value) AsStr() (string, error) {
	if v.kind != KindStr {
		return "", tjerr.New(tjerr.Type, "expected str, got %s", v.kind)
	}
	return v.s, nil
}

func (v Value) AsLoc() (string, error) {
	if v.kind != KindLoc {
		return "", tjerr.New(tjerr.Type, "expected loc, got %s", v.kind)
	}
	return v.s, nil
}

// Add implements the IR's Add/AddImm semantics: Int + Int only.
func (v Value) Add(other Value) (Value, error) {
	a, err := v.AsInt()
	if err != nil {
		return Value{}, err
	}
	b, err := other.AsInt()
	if err != nil {
		return Value{}, err
	}
	return IntVal(a + b), nil
}

// Mult implements Int * Int. Overflow wraps per Go's defined int64
// semantics; the source does the same with a plain C++ int64_t multiply.
func (v Value) Mult(other Value) (Value, error) {
	a, err := v.AsInt()
	if err != nil {
		return Value{}, err
	}
	b, err := other.AsInt()
	if err != nil {
		return Value{}, err
	}
	return IntVal(a * b), nil
}

func (v Value) CmpGT(other Value) (bool, error) { return v.cmp(other, func(a, b int64) bool { return a > b }) }
func (v Value) CmpGE(other Value) (bool, error) { return v.cmp(other, func(a, b int64) bool { return a >= b }) }
func (v Value) CmpLT(other Value) (bool, error) { return v.cmp(other, func(a, b int64) bool { return a < b }) }
func (v Value) CmpLE(other Value) (bool, error) { return v.cmp(other, func(a, b int64) bool { return a <= b }) }

func (v Value) cmp(other Value, op func(a, b int64) bool) (bool, error) {
	a, err := v.AsInt()
	if err != nil {
		return false, err
	}
	b, err := other.AsInt()
	if err != nil {
		return false, err
	}
	return op(a, b), nil
}

// ToBytes widens the value into the 8-byte word the flat register array
// and the JIT's load/store encoding operate on. Str/Loc/Null fault with
// tjerr.Type rather than leaking a pointer or asserting, unlike the
// source (which either crashes or returns a raw string-data address).
func (v Value) ToBytes() (uint64, error) {
	switch v.kind {
	case KindInt:
		return uint64(v.i), nil
	case KindFloat:
		return uint64(math.Float32bits(v.f)), nil
	default:
		return 0, tjerr.New(tjerr.Type, "cannot project %s to a machine word", v.kind)
	}
}

// FromBytes reconstructs a Value of the given Kind from a flat-array
// word, the inverse of ToBytes for the kinds the JIT can produce.
func FromBytes(kind Kind, bits uint64) (Value, error) {
	switch kind {
	case KindInt:
		return IntVal(int64(bits)), nil
	case KindFloat:
		return FloatVal(math.Float32frombits(uint32(bits))), nil
	default:
		return Value{}, tjerr.New(tjerr.Type, "cannot reconstruct %s from a machine word", kind)
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindStr:
		return fmt.Sprintf("%q", v.s)
	case KindLoc:
		return fmt.Sprintf("loc(%s)", v.s)
	default:
		return "?"
	}
}
