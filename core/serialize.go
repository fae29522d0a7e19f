// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Bytecode Serialization
// -------------------------------------------------
//
//   - Bit-exact wire format for a compiled Method: a fixed header (flags,
//     arg/local/return counts, local type table) followed by a dense
//     instruction stream: per instruction, a two-byte big-endian opcode
//     followed by that instruction's immediates. This is the codec the compiler (core/lang) writes and
//     the network/storage layer reads back — round-tripping a Method
//     through EncodeMethod/DecodeMethod must reproduce an identical
//     instruction sequence, per spec.md §8's bytecode round-trip
//     invariant.
//
//   - Grounded on the teacher's opcode_dispatcher.go encode/decode pair
//     (one switch over Opcode on the way out, one on the way back in,
//     immediates written big-endian); adapted from the teacher's flat
//     32-bit-word program format to this VM's byte-oriented stream with
//     typed immediates (Value, int8 offsets, varint indices).
package core

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// EncodeMethod serializes a compiled Method to its wire form.
func EncodeMethod(m *Method) ([]byte, error) {
	var buf bytes.Buffer
	var flags byte
	if m.IsPublic {
		flags |= 0x01
	}
	if m.IsPayable {
		flags |= 0x02
	}
	buf.WriteByte(flags)
	writeUvarint(&buf, uint64(m.ArgsLength))
	writeUvarint(&buf, uint64(m.LocalsLength))
	writeUvarint(&buf, uint64(m.ReturnLength))

	writeUvarint(&buf, uint64(len(m.LocalTypes)))
	for _, t := range m.LocalTypes {
		if err := encodeType(&buf, t); err != nil {
			return nil, err
		}
	}

	writeUvarint(&buf, uint64(len(m.Instrs)))
	for idx, instr := range m.Instrs {
		if err := encodeInstruction(&buf, instr, idx); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", idx, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeMethod deserializes a Method previously produced by EncodeMethod.
func DecodeMethod(data []byte) (*Method, error) {
	r := bytes.NewReader(data)
	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}
	m := &Method{IsPublic: flags&0x01 != 0, IsPayable: flags&0x02 != 0}

	argsLength, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read args length: %w", err)
	}
	m.ArgsLength = int(argsLength)

	localsLength, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read locals length: %w", err)
	}
	m.LocalsLength = int(localsLength)

	returnLength, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read return length: %w", err)
	}
	m.ReturnLength = int(returnLength)

	nTypes, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read local type count: %w", err)
	}
	m.LocalTypes = make([]Type, nTypes)
	for i := range m.LocalTypes {
		t, err := decodeType(r)
		if err != nil {
			return nil, fmt.Errorf("local type %d: %w", i, err)
		}
		m.LocalTypes[i] = t
	}

	nInstrs, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read instruction count: %w", err)
	}
	m.Instrs = make([]Instruction, nInstrs)
	for i := range m.Instrs {
		instr, err := decodeInstruction(r, i)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		m.Instrs[i] = instr
	}
	return m, nil
}

// --- Type codec --------------------------------------------------------------------

func encodeType(buf *bytes.Buffer, t Type) error {
	buf.WriteByte(byte(t.Kind))
	switch t.Kind {
	case KindFixedSizeArray:
		writeUvarint(buf, uint64(t.Length))
		return encodeType(buf, *t.Elem)
	case KindContract:
		buf.WriteByte(byte(t.ContractForm))
		writeUvarint(buf, uint64(len(t.ContractTypeID)))
		buf.WriteString(t.ContractTypeID)
	}
	return nil
}

func decodeType(r *bytes.Reader) (Type, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Type{}, err
	}
	kind := Kind(kindByte)
	switch kind {
	case KindFixedSizeArray:
		length, err := readUvarint(r)
		if err != nil {
			return Type{}, err
		}
		elem, err := decodeType(r)
		if err != nil {
			return Type{}, err
		}
		return NewArrayType(elem, int(length)), nil
	case KindContract:
		formByte, err := r.ReadByte()
		if err != nil {
			return Type{}, err
		}
		n, err := readUvarint(r)
		if err != nil {
			return Type{}, err
		}
		idBytes := make([]byte, n)
		if _, err := readFull(r, idBytes); err != nil {
			return Type{}, err
		}
		return NewContractType(string(idBytes), ContractTypeForm(formByte)), nil
	default:
		return Type{Kind: kind}, nil
	}
}

// --- Value codec -------------------------------------------------------------------

func encodeValue(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.Type().Kind))
	switch v.Type().Kind {
	case KindBool:
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindU256:
		b := v.AsU256().Bytes32()
		buf.Write(b[:])
	case KindI256:
		b := v.AsI256().Bytes32()
		buf.Write(b[:])
	case KindByteVec:
		bv := v.AsByteVec()
		writeUvarint(buf, uint64(len(bv)))
		buf.Write(bv)
	case KindAddress:
		a := v.AsAddress()
		buf.Write(a[:])
	default:
		return fmt.Errorf("cannot serialize a constant of kind %s", v.Type().Kind)
	}
	return nil
}

func decodeValue(r *bytes.Reader) (Value, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	switch Kind(kindByte) {
	case KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return NewBool(b != 0), nil
	case KindU256:
		var b [32]byte
		if _, err := readFull(r, b[:]); err != nil {
			return Value{}, err
		}
		return NewU256(new(uint256.Int).SetBytes32(b[:])), nil
	case KindI256:
		var b [32]byte
		if _, err := readFull(r, b[:]); err != nil {
			return Value{}, err
		}
		return NewI256(new(uint256.Int).SetBytes32(b[:])), nil
	case KindByteVec:
		n, err := readUvarint(r)
		if err != nil {
			return Value{}, err
		}
		bv := make([]byte, n)
		if _, err := readFull(r, bv); err != nil {
			return Value{}, err
		}
		return NewByteVec(bv), nil
	case KindAddress:
		var a Address
		if _, err := readFull(r, a[:]); err != nil {
			return Value{}, err
		}
		return NewAddress(a), nil
	default:
		return Value{}, fmt.Errorf("unknown constant kind %d", kindByte)
	}
}

// --- Instruction codec ---------------------------------------------------------------

// encodeInstruction writes the opcode as two big-endian bytes followed by
// that instruction's immediates. idx is the instruction's own index in the stream,
// needed to reconstruct JumpInstr/condJumpInstr's `at` field on decode.
func encodeInstruction(buf *bytes.Buffer, instr Instruction, idx int) error {
	op := instr.Op()
	binary.Write(buf, binary.BigEndian, uint16(op))

	switch v := instr.(type) {
	case ConstInstr:
		return encodeValue(buf, v.V)
	case JumpInstr:
		buf.WriteByte(byte(v.Offset))
	case condJumpInstr:
		buf.WriteByte(byte(v.Offset))
	case CallLocalInstr:
		writeUvarint(buf, uint64(v.MethodIndex))
	case CallExternalInstr:
		writeUvarint(buf, uint64(v.MethodIndex))
	case LoadLocalInstr:
		writeUvarint(buf, uint64(v.Index))
	case StoreLocalInstr:
		writeUvarint(buf, uint64(v.Index))
	case LoadFieldInstr:
		writeUvarint(buf, uint64(v.Index))
	case StoreFieldInstr:
		writeUvarint(buf, uint64(v.Index))
	case LogInstr:
		writeUvarint(buf, uint64(len(v.EventID)))
		buf.Write(v.EventID)
		writeUvarint(buf, uint64(v.N))
	case EqInstr:
		if v.Negate {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case PopInstr, AndInstr, OrInstr, NotInstr, ReturnInstr,
		Blake2bInstr, Keccak256Instr, VerifyTxSignatureInstr, EthEcRecoverInstr,
		ApproveAlfInstr, TransferAlfInstr, UseContractAssetsInstr, GenerateOutputInstr,
		binU256Instr, cmpU256Instr:
		// no immediates beyond the opcode itself
	default:
		return fmt.Errorf("unknown instruction type %T", instr)
	}
	return nil
}

func decodeInstruction(r *bytes.Reader, idx int) (Instruction, error) {
	var opBytes [2]byte
	if _, err := readFull(r, opBytes[:]); err != nil {
		return nil, err
	}
	op := Opcode(binary.BigEndian.Uint16(opBytes[:]))

	switch op {
	case OpConst:
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		return ConstInstr{V: v}, nil
	case OpPop:
		return PopInstr{}, nil
	case OpAddU256:
		return AddU256Instr, nil
	case OpSubU256:
		return SubU256Instr, nil
	case OpMulU256:
		return MulU256Instr, nil
	case OpDivU256:
		return DivU256Instr, nil
	case OpModU256:
		return ModU256Instr, nil
	case OpAddI256:
		return AddI256Instr, nil
	case OpSubI256:
		return SubI256Instr, nil
	case OpMulI256:
		return MulI256Instr, nil
	case OpDivI256:
		return DivI256Instr, nil
	case OpModI256:
		return ModI256Instr, nil
	case OpEq, OpNeq:
		negByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return EqInstr{Negate: negByte != 0}, nil
	case OpLtU256:
		return LtU256Instr, nil
	case OpGtU256:
		return GtU256Instr, nil
	case OpLeU256:
		return LeU256Instr, nil
	case OpGeU256:
		return GeU256Instr, nil
	case OpAnd:
		return AndInstr{}, nil
	case OpOr:
		return OrInstr{}, nil
	case OpNot:
		return NotInstr{}, nil
	case OpJump:
		offByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return NewJumpInstr(idx, int8(offByte)), nil
	case OpIfTrue:
		offByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return NewIfTrueInstr(idx, int8(offByte)), nil
	case OpIfFalse:
		offByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return NewIfFalseInstr(idx, int8(offByte)), nil
	case OpReturn:
		return ReturnInstr{}, nil
	case OpCallLocal:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return CallLocalInstr{MethodIndex: int(n)}, nil
	case OpCallExternal:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return CallExternalInstr{MethodIndex: int(n)}, nil
	case OpLoadLocal:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return LoadLocalInstr{Index: int(n)}, nil
	case OpStoreLocal:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return StoreLocalInstr{Index: int(n)}, nil
	case OpBlake2b:
		return Blake2bInstr{}, nil
	case OpKeccak256:
		return Keccak256Instr{}, nil
	case OpVerifyTxSignature:
		return VerifyTxSignatureInstr{}, nil
	case OpEthEcRecover:
		return EthEcRecoverInstr{}, nil
	case OpLoadField:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return LoadFieldInstr{Index: int(n)}, nil
	case OpStoreField:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return StoreFieldInstr{Index: int(n)}, nil
	case OpLog:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		eventID := make([]byte, n)
		if _, err := readFull(r, eventID); err != nil {
			return nil, err
		}
		argN, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return LogInstr{EventID: eventID, N: int(argN)}, nil
	case OpApproveAlf:
		return ApproveAlfInstr{}, nil
	case OpTransferAlf:
		return TransferAlfInstr{}, nil
	case OpUseContractAssets:
		return UseContractAssetsInstr{}, nil
	case OpGenerateOutput:
		return GenerateOutputInstr{}, nil
	default:
		return nil, fmt.Errorf("unknown opcode %04x", uint16(op))
	}
}

// --- varint helpers ------------------------------------------------------------------

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err == nil && n != len(buf) {
		return n, fmt.Errorf("short read: want %d, got %d", len(buf), n)
	}
	return n, err
}
