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

// This file collects small, self-explanatory constructors for the
// instructions this package's passes and tests construct most often. They
// exist purely to keep fixture and driver code from repeating struct
// literals; none of them is required by the module view's contract.

func Simple(op OpCode) Instruction { return Instruction{Op: op} }

func I32ConstOf(v int32) Instruction { return Instruction{Op: I32Const, I32: v} }
func I64ConstOf(v int64) Instruction { return Instruction{Op: I64Const, I64: v} }

func LocalGetOf(idx uint32) Instruction  { return Instruction{Op: LocalGet, Index: idx} }
func LocalSetOf(idx uint32) Instruction  { return Instruction{Op: LocalSet, Index: idx} }
func LocalTeeOf(idx uint32) Instruction  { return Instruction{Op: LocalTee, Index: idx} }
func GlobalGetOf(idx uint32) Instruction { return Instruction{Op: GlobalGet, Index: idx} }
func GlobalSetOf(idx uint32) Instruction { return Instruction{Op: GlobalSet, Index: idx} }

func CallOf(idx uint32) Instruction { return Instruction{Op: Call, Index: idx} }
func CallIndirectOf(typeIdx uint32) Instruction {
	return Instruction{Op: CallIndirect, Index: typeIdx}
}

func BlockOf(t BlockType) Instruction { return Instruction{Op: Block, Block: t} }
func LoopOf(t BlockType) Instruction  { return Instruction{Op: Loop, Block: t} }
func IfOf(t BlockType) Instruction    { return Instruction{Op: If, Block: t} }

func BrOf(label uint32) Instruction   { return Instruction{Op: Br, Label: label} }
func BrIfOf(label uint32) Instruction { return Instruction{Op: BrIf, Label: label} }
func BrTableOf(def uint32, labels ...uint32) Instruction {
	return Instruction{Op: BrTable, Default: def, Labels: labels}
}

func LoadOf(op OpCode, align, offset uint32) Instruction {
	return Instruction{Op: op, Mem: MemArg{Align: align, Offset: offset}}
}
func StoreOf(op OpCode, align, offset uint32) Instruction {
	return Instruction{Op: op, Mem: MemArg{Align: align, Offset: offset}}
}

// BlockTypeEmpty and BlockTypeOf are convenience constructors for the two
// shapes a BlockType can take.
var BlockTypeEmpty = BlockType{Kind: BlockEmpty}

func BlockTypeOf(v ValueType) BlockType { return BlockType{Kind: BlockValue, Value: v} }
