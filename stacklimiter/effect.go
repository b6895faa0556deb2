// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package stacklimiter implements the stack-height limiting instrumentation
// pass: the abstract interpreter that computes a function's maximum value-
// stack height (spec.md §4.B), the per-function stack cost it feeds into,
// and the call-site preamble/postamble and thunk-synthesis driver that
// bounds the native call stack (§4.E).
package stacklimiter

import "github.com/Fantom-foundation/wasm-instrument/wasm"

// simpleEffect returns the (pop, push) stack effect of every opcode whose
// effect does not depend on control-flow state — i.e. everything except
// block/loop/if/else/end/br/br_if/br_table/return/call/call_indirect/
// unreachable, which computeMaxHeight handles directly. The opcode ranges
// mirror wasm.OpCode's own grouping (contiguous per category), the same
// range-check idiom the teacher's bytecode tables use.
func simpleEffect(op wasm.OpCode) (pop, push int, ok bool) {
	switch {
	case op == wasm.Nop:
		return 0, 0, true
	case op == wasm.I32Const || op == wasm.I64Const || op == wasm.F32Const || op == wasm.F64Const:
		return 0, 1, true
	case op == wasm.LocalGet || op == wasm.GlobalGet || op == wasm.MemorySize:
		return 0, 1, true
	case op == wasm.LocalSet || op == wasm.GlobalSet || op == wasm.Drop:
		return 1, 0, true
	case op == wasm.LocalTee:
		return 1, 1, true
	case op == wasm.Select:
		return 3, 1, true
	case op.IsLoad():
		return 1, 1, true
	case op.IsStore():
		return 2, 0, true
	case op == wasm.MemoryGrow:
		return 1, 1, true
	case op == wasm.I32Eqz || op == wasm.I64Eqz:
		return 1, 1, true
	case wasm.I32Eq <= op && op <= wasm.I32GeU:
		return 2, 1, true
	case wasm.I64Eq <= op && op <= wasm.I64GeU:
		return 2, 1, true
	case wasm.F32Eq <= op && op <= wasm.F64Ge:
		return 2, 1, true
	case wasm.I32Clz <= op && op <= wasm.I32Popcnt:
		return 1, 1, true
	case wasm.I32Add <= op && op <= wasm.I32Rotr:
		return 2, 1, true
	case wasm.I64Clz <= op && op <= wasm.I64Popcnt:
		return 1, 1, true
	case wasm.I64Add <= op && op <= wasm.I64Rotr:
		return 2, 1, true
	case wasm.F32Abs <= op && op <= wasm.F32Sqrt:
		return 1, 1, true
	case wasm.F32Add <= op && op <= wasm.F32CopySign:
		return 2, 1, true
	case wasm.F64Abs <= op && op <= wasm.F64Sqrt:
		return 1, 1, true
	case wasm.F64Add <= op && op <= wasm.F64CopySign:
		return 2, 1, true
	case wasm.I32WrapI64 <= op && op <= wasm.F64ReinterpretI64:
		return 1, 1, true
	case wasm.I32Extend8S <= op && op <= wasm.I64Extend32S:
		return 1, 1, true
	default:
		return 0, 0, false
	}
}
