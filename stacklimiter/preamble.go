// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package stacklimiter

import "github.com/Fantom-foundation/wasm-instrument/wasm"

// callPreamble builds the instruction sequence of spec.md §4.E step 4: bump
// the stack-height global by cost before the call, trap if that exceeds
// limit, make the call, then give the slots back. cost is a stack-cost
// value (always small and non-negative in practice, per §4.E step 3's sum
// of checked uint32 quantities) reinterpreted as i32.const's signed operand.
func callPreamble(globalH uint32, cost uint32, limit uint32, target uint32) []wasm.Instruction {
	return []wasm.Instruction{
		wasm.GlobalGetOf(globalH),
		wasm.I32ConstOf(int32(cost)),
		wasm.Simple(wasm.I32Add),
		wasm.GlobalSetOf(globalH),
		wasm.GlobalGetOf(globalH),
		wasm.I32ConstOf(int32(limit)),
		wasm.Simple(wasm.I32GtU),
		wasm.IfOf(wasm.BlockTypeEmpty),
		wasm.Simple(wasm.Unreachable),
		wasm.Simple(wasm.End),
		wasm.CallOf(target),
		wasm.GlobalGetOf(globalH),
		wasm.I32ConstOf(int32(cost)),
		wasm.Simple(wasm.I32Sub),
		wasm.GlobalSetOf(globalH),
	}
}

// rewriteCallSites replaces every `call f` in body with callPreamble(f),
// wherever costs[f] > 0. Calls to zero-cost functions (imports, or any
// function whose own analysis found nothing to bound) are left untouched,
// per §4.E step 4.
func rewriteCallSites(body []wasm.Instruction, globalH uint32, limit uint32, costs []uint32) []wasm.Instruction {
	out := make([]wasm.Instruction, 0, len(body))
	for _, instr := range body {
		if instr.Op == wasm.Call && costs[instr.Index] > 0 {
			out = append(out, callPreamble(globalH, costs[instr.Index], limit, instr.Index)...)
			continue
		}
		out = append(out, instr)
	}
	return out
}
