// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Error Taxonomy
// -------------------------------------------
//
//   - Three orthogonal error kinds per spec: CompileError (halts
//     compilation synchronously), ExecutionError (bubbled through the VM as
//     a result value) and IOError (storage/collaborator failures that leave
//     the world state indeterminate and must abort without commit).
//
//   - ExecutionError and IOError are distinguished because the outer driver
//     must never charge a user for an IOError, and must never commit staging
//     after one.
package core

import "fmt"

// CompileError is returned synchronously by the compiler front end.
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string { return "compile error: " + e.Msg }

func NewCompileError(format string, args ...any) *CompileError {
	return &CompileError{Msg: fmt.Sprintf(format, args...)}
}

// ExecutionErrorCode enumerates the closed set of execution failures a VM
// step may produce.
type ExecutionErrorCode uint8

const (
	ErrStackOverflow ExecutionErrorCode = iota
	ErrStackUnderflow
	ErrOutOfGas
	ErrArithmeticErrorCode
	ErrInvalidOpcode
	ErrInvalidPc
	ErrInvalidTxInputIndex
	ErrNonExistTxInput
	ErrExpectNonPayableMethod
	ErrExpectPayableMethod
	ErrInvalidBalances
	ErrUnableToPayGasFee
	ErrInvalidAddressTypeInContractDestroy
	ErrContractAssetUnflushed
	ErrContractAssetAlreadyInUsing
)

var executionErrorNames = map[ExecutionErrorCode]string{
	ErrStackOverflow:                       "StackOverflow",
	ErrStackUnderflow:                      "StackUnderflow",
	ErrOutOfGas:                            "OutOfGas",
	ErrArithmeticErrorCode:                 "ArithmeticError",
	ErrInvalidOpcode:                       "InvalidOpcode",
	ErrInvalidPc:                           "InvalidPc",
	ErrInvalidTxInputIndex:                 "InvalidTxInputIndex",
	ErrNonExistTxInput:                     "NonExistTxInput",
	ErrExpectNonPayableMethod:              "ExpectNonPayableMethod",
	ErrExpectPayableMethod:                 "ExpectPayableMethod",
	ErrInvalidBalances:                     "InvalidBalances",
	ErrUnableToPayGasFee:                   "UnableToPayGasFee",
	ErrInvalidAddressTypeInContractDestroy: "InvalidAddressTypeInContractDestroy",
	ErrContractAssetUnflushed:              "ContractAssetUnflushed",
	ErrContractAssetAlreadyInUsing:         "ContractAssetAlreadyInUsing",
}

// ExecutionError is a tagged VM execution failure, bubbled as a plain Go
// error from every VM step.
type ExecutionError struct {
	Code ExecutionErrorCode
	Msg  string
}

func (e *ExecutionError) Error() string {
	name := executionErrorNames[e.Code]
	if e.Msg == "" {
		return "execution error: " + name
	}
	return fmt.Sprintf("execution error: %s: %s", name, e.Msg)
}

func newExecErr(code ExecutionErrorCode, format string, args ...any) *ExecutionError {
	return &ExecutionError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func ErrArithmetic(format string, args ...any) *ExecutionError {
	return newExecErr(ErrArithmeticErrorCode, format, args...)
}

// ErrExpectPayable reports an asset op executing under a method whose
// IsPayable flag is false — spec.md §4.1's "asset ops (stateful, payable
// only)".
func ErrExpectPayable(format string, args ...any) *ExecutionError {
	return newExecErr(ErrExpectPayableMethod, format, args...)
}

// ErrExpectNonPayable reports getInitialBalances called for an entry
// method whose IsPayable flag is false — spec.md §4.3's
// "for non-payable entry, fails ExpectNonPayableMethod".
func ErrExpectNonPayable(format string, args ...any) *ExecutionError {
	return newExecErr(ErrExpectNonPayableMethod, format, args...)
}

// ErrContractDestroyAddress reports DestroyContract targeting a recipient
// address that is not a plain user lockup script (p2pkh-style) — spec.md's
// contract-destroy transition must pay out to a real account, not another
// contract handle.
func ErrContractDestroyAddress(format string, args ...any) *ExecutionError {
	return newExecErr(ErrInvalidAddressTypeInContractDestroy, format, args...)
}

// AsExecutionError unwraps err into an *ExecutionError if it is one.
func AsExecutionError(err error) (*ExecutionError, bool) {
	ee, ok := err.(*ExecutionError)
	return ee, ok
}

// IOErrorKind enumerates world-state/collaborator IO failure classes.
type IOErrorKind uint8

const (
	IOErrorLoadContract IOErrorKind = iota
	IOErrorLoadOutputs
	IOErrorUpdateState
)

func (k IOErrorKind) String() string {
	switch k {
	case IOErrorLoadContract:
		return "IOErrorLoadContract"
	case IOErrorLoadOutputs:
		return "IOErrorLoadOutputs"
	case IOErrorUpdateState:
		return "IOErrorUpdateState"
	default:
		return "IOError"
	}
}

// IOError signals the persisted world state is indeterminate; the caller
// must abort the transaction without committing staging, and must not
// charge the user for it.
type IOError struct {
	Kind  IOErrorKind
	Cause error
}

func (e *IOError) Error() string {
	if e.Cause == nil {
		return "io error: " + e.Kind.String()
	}
	return fmt.Sprintf("io error: %s: %v", e.Kind, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

func NewIOError(kind IOErrorKind, cause error) *IOError {
	return &IOError{Kind: kind, Cause: cause}
}

// AsIOError unwraps err into an *IOError if it is one.
func AsIOError(err error) (*IOError, bool) {
	ie, ok := err.(*IOError)
	return ie, ok
}
