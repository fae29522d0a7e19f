// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Value Types
// --------------------------------------
//
//   - Address and Hash are the two fixed-size identifiers shared across every
//     subsystem; both are kept here so that no package needs to import the
//     VM just to reference a 20- or 32-byte handle.
//
//   - Type is the static type of a Value (see value.go). Types compare
//     structurally except Contract types, which compare by identifier.
package core

import (
	"encoding/hex"
	"fmt"
)

// Address is a 20-byte lockup-script handle. The VM treats it as opaque;
// only the collaborating ledger/consensus layer knows how to spend it.
type Address [20]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

// AddressZero is the sentinel zero address used for contract-creation
// derivation and as a default "no caller" value.
var AddressZero = Address{}

// Hash is a 32-byte digest, produced by Blake2b, Keccak256 or SHA-256
// depending on the instruction that generated it.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Short returns an abbreviated hex form (first 4 + last 4 bytes) for logs.
func (h Hash) Short() string {
	s := hex.EncodeToString(h[:])
	if len(s) <= 8 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}

// ContractID identifies a deployed StatefulContract. AddressToContractID
// (instruction.go) derives one from a 20-byte contract address by placing
// it in the last 20 bytes, zero-padded; no hashing is involved.
type ContractID Hash

func (c ContractID) String() string { return Hash(c).String() }

// TokenID identifies a token type tracked by Balances.
type TokenID Hash

// Kind enumerates the static shape of a Type.
type Kind uint8

const (
	KindBool Kind = iota
	KindU256
	KindI256
	KindByteVec
	KindAddress
	KindFixedSizeArray
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindU256:
		return "U256"
	case KindI256:
		return "I256"
	case KindByteVec:
		return "ByteVec"
	case KindAddress:
		return "Address"
	case KindFixedSizeArray:
		return "FixedSizeArray"
	case KindContract:
		return "Contract"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ContractTypeForm distinguishes a contract handle living on the operand
// stack from one stored as a contract's persisted field — both carry the
// same ContractTypeId but have different mutability/serialization rules.
type ContractTypeForm uint8

const (
	ContractStackHandle ContractTypeForm = iota
	ContractStoredField
)

// Type is the static type of a Value. Construct primitive types with the
// package-level Bool/U256Type/... values; construct arrays with NewArrayType
// and contract handles with NewContractType.
type Type struct {
	Kind Kind

	// Array fields, valid when Kind == KindFixedSizeArray.
	Elem   *Type
	Length int

	// Contract fields, valid when Kind == KindContract.
	ContractTypeID string
	ContractForm   ContractTypeForm
}

var (
	BoolType    = Type{Kind: KindBool}
	U256Type    = Type{Kind: KindU256}
	I256Type    = Type{Kind: KindI256}
	ByteVecType = Type{Kind: KindByteVec}
	AddressType = Type{Kind: KindAddress}
)

// NewArrayType constructs a FixedSizeArray(base, length) type. Arrays may
// nest: base itself may be another array type.
func NewArrayType(base Type, length int) Type {
	b := base
	return Type{Kind: KindFixedSizeArray, Elem: &b, Length: length}
}

// NewContractType constructs a Contract type handle for the given contract
// type identifier.
func NewContractType(id string, form ContractTypeForm) Type {
	return Type{Kind: KindContract, ContractTypeID: id, ContractForm: form}
}

// Equal reports structural equality; Contract types compare by identifier
// only (their ContractForm is allowed to differ — a stack handle and a
// stored field referencing the same contract type are interchangeable for
// compatibility checks).
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindFixedSizeArray:
		return t.Length == o.Length && t.Elem.Equal(*o.Elem)
	case KindContract:
		return t.ContractTypeID == o.ContractTypeID
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindFixedSizeArray:
		return fmt.Sprintf("[%s;%d]", t.Elem.String(), t.Length)
	case KindContract:
		return fmt.Sprintf("Contract(%s)", t.ContractTypeID)
	default:
		return t.Kind.String()
	}
}

// FlattenedLength returns the number of contiguous Value slots this type
// occupies once arrays are flattened (see core/lang/flatten.go). Scalars
// occupy exactly one slot.
func (t Type) FlattenedLength() int {
	if t.Kind != KindFixedSizeArray {
		return 1
	}
	return t.Length * t.Elem.FlattenedLength()
}

// ZeroValue returns this type's zero value, used to initialise frame
// locals that were not supplied as call arguments.
func (t Type) ZeroValue() Value {
	switch t.Kind {
	case KindBool:
		return NewBool(false)
	case KindU256:
		return NewU256FromUint64(0)
	case KindI256:
		return NewI256FromInt64(0)
	case KindByteVec:
		return NewByteVec(nil)
	case KindAddress:
		return NewAddress(Address{})
	default:
		// Arrays/contracts never occupy a single Value; the flattened
		// variable table always resolves these to scalar slots before a
		// ZeroValue is requested.
		return NewU256FromUint64(0)
	}
}
