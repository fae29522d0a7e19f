// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Value Domain
// ---------------------------------------
//
//   - Value is a tagged union over the five runtime value shapes the VM
//     operates on. Every Value reports a static Type (see types.go).
//
//   - U256/I256 arithmetic is CHECKED: overflow, underflow and division by
//     zero surface as ArithmeticError rather than silently wrapping. This is
//     backed by github.com/holiman/uint256, which gives fixed-256-bit
//     semantics the standard library's math/big cannot (big.Int is
//     arbitrary precision and must be masked by hand on every operation).
package core

import (
	"bytes"

	"github.com/holiman/uint256"
)

// Value is an immutable tagged union. Exactly one of the typed fields is
// meaningful, selected by typ.Kind.
type Value struct {
	typ Type

	b    bool
	u256 *uint256.Int
	i256 *uint256.Int // two's-complement representation of a signed 256-bit value
	bv   []byte
	addr Address
}

func (v Value) Type() Type { return v.typ }

// NewBool constructs a Bool value.
func NewBool(b bool) Value { return Value{typ: BoolType, b: b} }

// NewU256FromUint64 constructs a U256 value from a uint64.
func NewU256FromUint64(x uint64) Value {
	return Value{typ: U256Type, u256: uint256.NewInt(x)}
}

// NewU256 constructs a U256 value from an existing *uint256.Int, cloning it
// so callers may keep mutating their own copy.
func NewU256(x *uint256.Int) Value {
	return Value{typ: U256Type, u256: new(uint256.Int).Set(x)}
}

// NewI256FromInt64 constructs an I256 value from an int64, stored in its
// two's-complement 256-bit representation.
func NewI256FromInt64(x int64) Value {
	u := new(uint256.Int)
	if x < 0 {
		u.SetUint64(uint64(-x))
		u = new(uint256.Int).Neg(u)
	} else {
		u.SetUint64(uint64(x))
	}
	return Value{typ: I256Type, i256: u}
}

// NewI256 constructs an I256 value directly from its two's-complement
// representation.
func NewI256(x *uint256.Int) Value {
	return Value{typ: I256Type, i256: new(uint256.Int).Set(x)}
}

// NewByteVec constructs a ByteVec value. The backing slice is copied so the
// Value remains immutable even if the caller mutates their slice.
func NewByteVec(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{typ: ByteVecType, bv: cp}
}

// NewAddress constructs an Address value.
func NewAddress(a Address) Value { return Value{typ: AddressType, addr: a} }

func (v Value) AsBool() bool          { return v.b }
func (v Value) AsU256() *uint256.Int  { return v.u256 }
func (v Value) AsI256() *uint256.Int  { return v.i256 }
func (v Value) AsByteVec() []byte     { return v.bv }
func (v Value) AsAddress() Address    { return v.addr }

// Equal reports structural value equality; types must match.
func (v Value) Equal(o Value) bool {
	if !v.typ.Equal(o.typ) {
		return false
	}
	switch v.typ.Kind {
	case KindBool:
		return v.b == o.b
	case KindU256:
		return v.u256.Eq(o.u256)
	case KindI256:
		return v.i256.Eq(o.i256)
	case KindByteVec:
		return bytes.Equal(v.bv, o.bv)
	case KindAddress:
		return v.addr == o.addr
	default:
		return false
	}
}

// --- Checked U256 arithmetic -------------------------------------------------

// AddU256 returns a+b, or ArithmeticError on overflow.
func AddU256(a, b Value) (Value, error) {
	var out uint256.Int
	if _, overflow := out.AddOverflow(a.u256, b.u256); overflow {
		return Value{}, ErrArithmetic("U256 addition overflow")
	}
	return NewU256(&out), nil
}

// SubU256 returns a-b, or ArithmeticError on underflow.
func SubU256(a, b Value) (Value, error) {
	var out uint256.Int
	if _, underflow := out.SubOverflow(a.u256, b.u256); underflow {
		return Value{}, ErrArithmetic("U256 subtraction underflow")
	}
	return NewU256(&out), nil
}

// MulU256 returns a*b, or ArithmeticError on overflow.
func MulU256(a, b Value) (Value, error) {
	var out uint256.Int
	if _, overflow := out.MulOverflow(a.u256, b.u256); overflow {
		return Value{}, ErrArithmetic("U256 multiplication overflow")
	}
	return NewU256(&out), nil
}

// DivU256 returns a/b, or ArithmeticError if b is zero.
func DivU256(a, b Value) (Value, error) {
	if b.u256.IsZero() {
		return Value{}, ErrArithmetic("U256 division by zero")
	}
	var out uint256.Int
	out.Div(a.u256, b.u256)
	return NewU256(&out), nil
}

// ModU256 returns a%b, or ArithmeticError if b is zero.
func ModU256(a, b Value) (Value, error) {
	if b.u256.IsZero() {
		return Value{}, ErrArithmetic("U256 modulo by zero")
	}
	var out uint256.Int
	out.Mod(a.u256, b.u256)
	return NewU256(&out), nil
}

// --- Checked I256 arithmetic (two's-complement 256-bit) ----------------------

// AddI256 returns a+b interpreted as signed 256-bit integers.
func AddI256(a, b Value) (Value, error) {
	var out uint256.Int
	out.Add(a.i256, b.i256)
	if signedOverflowOnAdd(a.i256, b.i256, &out) {
		return Value{}, ErrArithmetic("I256 addition overflow")
	}
	return NewI256(&out), nil
}

// SubI256 returns a-b interpreted as signed 256-bit integers.
func SubI256(a, b Value) (Value, error) {
	var out uint256.Int
	out.Sub(a.i256, b.i256)
	neg := new(uint256.Int).Neg(b.i256)
	if signedOverflowOnAdd(a.i256, neg, &out) {
		return Value{}, ErrArithmetic("I256 subtraction overflow")
	}
	return NewI256(&out), nil
}

// MulI256 returns a*b interpreted as signed 256-bit integers. Overflow is
// detected by dividing the product back by one operand and comparing.
func MulI256(a, b Value) (Value, error) {
	var out uint256.Int
	out.Mul(a.i256, b.i256)
	if !a.i256.IsZero() && !out.IsZero() {
		var back uint256.Int
		back.SDiv(&out, a.i256)
		if !back.Eq(b.i256) {
			return Value{}, ErrArithmetic("I256 multiplication overflow")
		}
	}
	return NewI256(&out), nil
}

// DivI256 returns a/b interpreted as signed 256-bit integers, truncating
// toward zero. Division by zero is an ArithmeticError.
func DivI256(a, b Value) (Value, error) {
	if b.i256.IsZero() {
		return Value{}, ErrArithmetic("I256 division by zero")
	}
	var out uint256.Int
	out.SDiv(a.i256, b.i256)
	return NewI256(&out), nil
}

// ModI256 returns a%b interpreted as signed 256-bit integers.
func ModI256(a, b Value) (Value, error) {
	if b.i256.IsZero() {
		return Value{}, ErrArithmetic("I256 modulo by zero")
	}
	var out uint256.Int
	out.SMod(a.i256, b.i256)
	return NewI256(&out), nil
}

func isSigned(x *uint256.Int) bool {
	return x.Bit(255) == 1
}

// signedOverflowOnAdd reports whether a+b=out overflowed as a signed 256-bit
// addition (both operands same sign, result differs in sign).
func signedOverflowOnAdd(a, b, out *uint256.Int) bool {
	as, bs, os := isSigned(a), isSigned(b), isSigned(out)
	return as == bs && os != as
}
