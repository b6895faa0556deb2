// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package wasm provides the in-memory module view both instrumentation
// passes operate on: typed sections, a tagged Instruction variant, and a
// handful of append/mutate helpers. It deliberately does not parse or
// serialize the Wasm binary format — that codec is a separate, external
// concern.
package wasm

import "fmt"

// OpCode identifies a Wasm 1.0 (plus the sign-extension proposal)
// instruction. The numeric values are internal to this package and are not
// required to match the Wasm binary encoding; the order groups opcodes by
// category so that cost tables and stack-effect tables can use contiguous
// range checks, the same way the teacher's bytecode opcode table does.
type OpCode uint16

const (
	Unreachable OpCode = iota
	Nop
	Block
	Loop
	If
	Else
	End
	Br
	BrIf
	BrTable
	Return
	Call
	CallIndirect

	Drop
	Select

	LocalGet
	LocalSet
	LocalTee
	GlobalGet
	GlobalSet

	// Memory loads, grouped so `I32Load <= op && op <= I64Load32U` identifies
	// every load.
	I32Load
	I64Load
	F32Load
	F64Load
	I32Load8S
	I32Load8U
	I32Load16S
	I32Load16U
	I64Load8S
	I64Load8U
	I64Load16S
	I64Load16U
	I64Load32S
	I64Load32U

	// Memory stores, grouped likewise.
	I32Store
	I64Store
	F32Store
	F64Store
	I32Store8
	I32Store16
	I64Store8
	I64Store16
	I64Store32

	MemorySize
	MemoryGrow

	// Constants.
	I32Const
	I64Const
	F32Const
	F64Const

	// i32 comparisons: pop 2 (pop 1 for Eqz), push 1 (i32 bool).
	I32Eqz
	I32Eq
	I32Ne
	I32LtS
	I32LtU
	I32GtS
	I32GtU
	I32LeS
	I32LeU
	I32GeS
	I32GeU

	// i64 comparisons.
	I64Eqz
	I64Eq
	I64Ne
	I64LtS
	I64LtU
	I64GtS
	I64GtU
	I64LeS
	I64LeU
	I64GeS
	I64GeU

	// f32/f64 comparisons: pop 2, push 1.
	F32Eq
	F32Ne
	F32Lt
	F32Gt
	F32Le
	F32Ge
	F64Eq
	F64Ne
	F64Lt
	F64Gt
	F64Le
	F64Ge

	// i32 arithmetic/bitwise: unary (Clz/Ctz/Popcnt) pop 1 push 1, the rest
	// pop 2 push 1.
	I32Clz
	I32Ctz
	I32Popcnt
	I32Add
	I32Sub
	I32Mul
	I32DivS
	I32DivU
	I32RemS
	I32RemU
	I32And
	I32Or
	I32Xor
	I32Shl
	I32ShrS
	I32ShrU
	I32Rotl
	I32Rotr

	// i64 arithmetic/bitwise.
	I64Clz
	I64Ctz
	I64Popcnt
	I64Add
	I64Sub
	I64Mul
	I64DivS
	I64DivU
	I64RemS
	I64RemU
	I64And
	I64Or
	I64Xor
	I64Shl
	I64ShrS
	I64ShrU
	I64Rotl
	I64Rotr

	// f32 arithmetic: all unary except the binary ops (Add..CopySign).
	F32Abs
	F32Neg
	F32Ceil
	F32Floor
	F32Trunc
	F32Nearest
	F32Sqrt
	F32Add
	F32Sub
	F32Mul
	F32Div
	F32Min
	F32Max
	F32CopySign

	// f64 arithmetic.
	F64Abs
	F64Neg
	F64Ceil
	F64Floor
	F64Trunc
	F64Nearest
	F64Sqrt
	F64Add
	F64Sub
	F64Mul
	F64Div
	F64Min
	F64Max
	F64CopySign

	// Conversions: all pop 1 push 1.
	I32WrapI64
	I32TruncF32S
	I32TruncF32U
	I32TruncF64S
	I32TruncF64U
	I64ExtendI32S
	I64ExtendI32U
	I64TruncF32S
	I64TruncF32U
	I64TruncF64S
	I64TruncF64U
	F32ConvertI32S
	F32ConvertI32U
	F32ConvertI64S
	F32ConvertI64U
	F32DemoteF64
	F64ConvertI32S
	F64ConvertI32U
	F64ConvertI64S
	F64ConvertI64U
	F64PromoteF32
	I32ReinterpretF32
	I64ReinterpretF64
	F32ReinterpretI32
	F64ReinterpretI64

	// Sign-extension proposal opcodes (spec.md §3: "optionally
	// sign-extension opcodes"). All pop 1 push 1, like their non-extending
	// unary siblings.
	I32Extend8S
	I32Extend16S
	I64Extend8S
	I64Extend16S
	I64Extend32S

	numOpCodes
)

var opcodeNames = [numOpCodes]string{
	Unreachable: "unreachable", Nop: "nop", Block: "block", Loop: "loop",
	If: "if", Else: "else", End: "end", Br: "br", BrIf: "br_if",
	BrTable: "br_table", Return: "return", Call: "call",
	CallIndirect: "call_indirect", Drop: "drop", Select: "select",
	LocalGet: "local.get", LocalSet: "local.set", LocalTee: "local.tee",
	GlobalGet: "global.get", GlobalSet: "global.set",
	I32Load: "i32.load", I64Load: "i64.load", F32Load: "f32.load", F64Load: "f64.load",
	I32Load8S: "i32.load8_s", I32Load8U: "i32.load8_u",
	I32Load16S: "i32.load16_s", I32Load16U: "i32.load16_u",
	I64Load8S: "i64.load8_s", I64Load8U: "i64.load8_u",
	I64Load16S: "i64.load16_s", I64Load16U: "i64.load16_u",
	I64Load32S: "i64.load32_s", I64Load32U: "i64.load32_u",
	I32Store: "i32.store", I64Store: "i64.store", F32Store: "f32.store", F64Store: "f64.store",
	I32Store8: "i32.store8", I32Store16: "i32.store16",
	I64Store8: "i64.store8", I64Store16: "i64.store16", I64Store32: "i64.store32",
	MemorySize: "memory.size", MemoryGrow: "memory.grow",
	I32Const: "i32.const", I64Const: "i64.const", F32Const: "f32.const", F64Const: "f64.const",
	I32Eqz: "i32.eqz", I32Eq: "i32.eq", I32Ne: "i32.ne",
	I32LtS: "i32.lt_s", I32LtU: "i32.lt_u", I32GtS: "i32.gt_s", I32GtU: "i32.gt_u",
	I32LeS: "i32.le_s", I32LeU: "i32.le_u", I32GeS: "i32.ge_s", I32GeU: "i32.ge_u",
	I64Eqz: "i64.eqz", I64Eq: "i64.eq", I64Ne: "i64.ne",
	I64LtS: "i64.lt_s", I64LtU: "i64.lt_u", I64GtS: "i64.gt_s", I64GtU: "i64.gt_u",
	I64LeS: "i64.le_s", I64LeU: "i64.le_u", I64GeS: "i64.ge_s", I64GeU: "i64.ge_u",
	F32Eq: "f32.eq", F32Ne: "f32.ne", F32Lt: "f32.lt", F32Gt: "f32.gt", F32Le: "f32.le", F32Ge: "f32.ge",
	F64Eq: "f64.eq", F64Ne: "f64.ne", F64Lt: "f64.lt", F64Gt: "f64.gt", F64Le: "f64.le", F64Ge: "f64.ge",
	I32Clz: "i32.clz", I32Ctz: "i32.ctz", I32Popcnt: "i32.popcnt",
	I32Add: "i32.add", I32Sub: "i32.sub", I32Mul: "i32.mul",
	I32DivS: "i32.div_s", I32DivU: "i32.div_u", I32RemS: "i32.rem_s", I32RemU: "i32.rem_u",
	I32And: "i32.and", I32Or: "i32.or", I32Xor: "i32.xor",
	I32Shl: "i32.shl", I32ShrS: "i32.shr_s", I32ShrU: "i32.shr_u",
	I32Rotl: "i32.rotl", I32Rotr: "i32.rotr",
	I64Clz: "i64.clz", I64Ctz: "i64.ctz", I64Popcnt: "i64.popcnt",
	I64Add: "i64.add", I64Sub: "i64.sub", I64Mul: "i64.mul",
	I64DivS: "i64.div_s", I64DivU: "i64.div_u", I64RemS: "i64.rem_s", I64RemU: "i64.rem_u",
	I64And: "i64.and", I64Or: "i64.or", I64Xor: "i64.xor",
	I64Shl: "i64.shl", I64ShrS: "i64.shr_s", I64ShrU: "i64.shr_u",
	I64Rotl: "i64.rotl", I64Rotr: "i64.rotr",
	F32Abs: "f32.abs", F32Neg: "f32.neg", F32Ceil: "f32.ceil", F32Floor: "f32.floor",
	F32Trunc: "f32.trunc", F32Nearest: "f32.nearest", F32Sqrt: "f32.sqrt",
	F32Add: "f32.add", F32Sub: "f32.sub", F32Mul: "f32.mul", F32Div: "f32.div",
	F32Min: "f32.min", F32Max: "f32.max", F32CopySign: "f32.copysign",
	F64Abs: "f64.abs", F64Neg: "f64.neg", F64Ceil: "f64.ceil", F64Floor: "f64.floor",
	F64Trunc: "f64.trunc", F64Nearest: "f64.nearest", F64Sqrt: "f64.sqrt",
	F64Add: "f64.add", F64Sub: "f64.sub", F64Mul: "f64.mul", F64Div: "f64.div",
	F64Min: "f64.min", F64Max: "f64.max", F64CopySign: "f64.copysign",
	I32WrapI64: "i32.wrap_i64",
	I32TruncF32S: "i32.trunc_f32_s", I32TruncF32U: "i32.trunc_f32_u",
	I32TruncF64S: "i32.trunc_f64_s", I32TruncF64U: "i32.trunc_f64_u",
	I64ExtendI32S: "i64.extend_i32_s", I64ExtendI32U: "i64.extend_i32_u",
	I64TruncF32S: "i64.trunc_f32_s", I64TruncF32U: "i64.trunc_f32_u",
	I64TruncF64S: "i64.trunc_f64_s", I64TruncF64U: "i64.trunc_f64_u",
	F32ConvertI32S: "f32.convert_i32_s", F32ConvertI32U: "f32.convert_i32_u",
	F32ConvertI64S: "f32.convert_i64_s", F32ConvertI64U: "f32.convert_i64_u",
	F32DemoteF64: "f32.demote_f64",
	F64ConvertI32S: "f64.convert_i32_s", F64ConvertI32U: "f64.convert_i32_u",
	F64ConvertI64S: "f64.convert_i64_s", F64ConvertI64U: "f64.convert_i64_u",
	F64PromoteF32: "f64.promote_f32",
	I32ReinterpretF32: "i32.reinterpret_f32", I64ReinterpretF64: "i64.reinterpret_f64",
	F32ReinterpretI32: "f32.reinterpret_i32", F64ReinterpretI64: "f64.reinterpret_i64",
	I32Extend8S: "i32.extend8_s", I32Extend16S: "i32.extend16_s",
	I64Extend8S: "i64.extend8_s", I64Extend16S: "i64.extend16_s", I64Extend32S: "i64.extend32_s",
}

// NumOpCodes returns the number of opcodes known to this package; useful for
// sizing dense per-opcode tables the way the teacher's gas table is sized by
// NUM_OPCODES.
func NumOpCodes() int { return int(numOpCodes) }

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("OpCode(%d)", op)
}

// IsLoad reports whether op is one of the memory load instructions.
func (op OpCode) IsLoad() bool { return I32Load <= op && op <= I64Load32U }

// IsStore reports whether op is one of the memory store instructions.
func (op OpCode) IsStore() bool { return I32Store <= op && op <= I64Store32 }
