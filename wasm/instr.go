// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package wasm

// BlockKind distinguishes the two shapes a block type can take: no result,
// or exactly one result value (Wasm 1.0 does not support multi-value block
// types).
type BlockKind uint8

const (
	BlockEmpty BlockKind = iota
	BlockValue
)

// BlockType is the `T` of `block T` / `loop T` / `if T` in spec.md §3: empty
// or one value type.
type BlockType struct {
	Kind  BlockKind
	Value ValueType
}

// Arity returns the number of values this block type leaves on the stack.
func (t BlockType) Arity() int {
	if t.Kind == BlockValue {
		return 1
	}
	return 0
}

// ValueType is one of Wasm 1.0's four value types.
type ValueType uint8

const (
	I32 ValueType = iota
	I64
	F32
	F64
)

func (v ValueType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "?"
	}
}

// MemArg carries the alignment/offset pair a load or store instruction is
// annotated with.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Instruction is a single tagged instruction, covering every variant listed
// in spec.md §3. A single struct (rather than one concrete type per opcode)
// is used for the same reason the teacher's own Instruction type packs
// opcode+argument into one value: function bodies are long, flat slices of
// these, and keeping the element type small and uniform keeps conversion and
// analysis code simple.
type Instruction struct {
	Op OpCode

	// I32Const/I64Const/F32Const/F64Const.
	I32 int32
	I64 int64
	F32 float32
	F64 float64

	// LocalGet/LocalSet/LocalTee/GlobalGet/GlobalSet/Call: the local,
	// global, or function index. CallIndirect: the type index.
	Index uint32

	// Loads/stores.
	Mem MemArg

	// Block/Loop/If.
	Block BlockType

	// Br/BrIf: the (relative) branch target label depth.
	Label uint32

	// BrTable: the default target and the per-case targets, both relative
	// label depths, per spec.md §3 (`br_table {default, [labels…]}`).
	Default uint32
	Labels  []uint32
}

func (i Instruction) String() string {
	return i.Op.String()
}

// Local is one run of the declared-locals table in a function body
// (spec.md §3: "a declared-locals run-length table (count × value-type)").
type Local struct {
	Count uint32
	Type  ValueType
}

// Body is a function body: its declared locals followed by its instruction
// sequence (terminated, per spec.md, by a function-level `end` which is
// included as the final element of Instructions).
type Body struct {
	Locals       []Local
	Instructions []Instruction
}

// NumLocalSlots sums the declared-local run-length table into a flat count,
// checked against uint32 overflow (spec.md invariant 5 generalized to
// locals, as used by stacklimiter's per-function stack cost).
func (b Body) NumLocalSlots() (uint32, error) {
	var total uint64
	for _, l := range b.Locals {
		total += uint64(l.Count)
		if total > 1<<32-1 {
			return 0, ErrOverflow
		}
	}
	return uint32(total), nil
}
