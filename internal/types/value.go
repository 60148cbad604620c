// Package types defines the scalar value model shared by every layer of the
// storage engine: the tagged Value union that a row column holds, the Row and
// Schema/Column metadata describing a table's shape, and the deterministic
// key-derivation function the index layer uses to turn a Value into the u64
// key its B+-tree and hash pages are keyed on.
package types

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies which variant of Value is populated. Go has no tagged
// union, so Value carries an explicit discriminant the way a closed enum
// would, rather than relying on nil-checking every field.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	// KindExtension marks a value produced by the (out-of-scope) type
	// extension registry. The core never interprets ExtOID; a row stores an
	// extension value as its type OID only and reads it back as Null.
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Value is a single column value. Exactly one field is meaningful, selected
// by Kind; the others are zero. This mirrors the closed tagged union the
// original Rust enum expressed, the alternative preferred over dynamic
// dispatch for a fixed, small set of scalar kinds.
type Value struct {
	Kind   Kind
	Int    int64
	Float  float64
	Str    string
	Bool   bool
	ExtOID uint32
}

func NullValue() Value            { return Value{Kind: KindNull} }
func IntValue(n int64) Value      { return Value{Kind: KindInt, Int: n} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func ExtensionValue(oid uint32) Value {
	return Value{Kind: KindExtension, ExtOID: oid}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value for debugging and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%v", v.Float)
	case KindString:
		return v.Str
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindExtension:
		return fmt.Sprintf("<extension %d>", v.ExtOID)
	default:
		return "<unknown>"
	}
}

// DeriveKey maps a Value onto the u64 key space the index pages store.
// Integers are reinterpreted bit-for-bit (so ordering over the derived key
// matches ordering over the signed integer only for non-negative values, the
// same limitation the original implementation carries for its single-column
// integer primary keys). Floats are mapped through their IEEE-754 bit
// pattern. Strings are hashed with xxHash64 - deterministic, but two
// distinct strings may collide, and range scans over hashed string keys
// do not correspond to lexical ordering; callers that need lexical range
// scans over string keys must verify matches themselves. Null has no key.
func DeriveKey(v Value) (uint64, error) {
	switch v.Kind {
	case KindInt:
		return uint64(v.Int), nil
	case KindFloat:
		return math.Float64bits(v.Float), nil
	case KindString:
		return xxhash.Sum64String(v.Str), nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, fmt.Errorf("cannot derive an index key from a NULL value")
	default:
		return 0, fmt.Errorf("cannot derive an index key from a %s value", v.Kind)
	}
}
