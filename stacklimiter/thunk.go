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

// buildThunk synthesizes a wrapper function of target's own signature that
// pushes each parameter in order, then runs the same preamble/call/
// postamble bracket a rewritten call site would, then ends (spec.md §4.E
// step 5). It is appended to m and its new function index is returned.
//
// The thunk's own call must be metered too: a host-initiated entry through
// the thunk consumes stack for the thunk's parameter pushes and its own
// bracket before target's body ever runs, on top of whatever target itself
// needs. So the bracket's operand is not targetCost alone: the thunk is
// built once with a placeholder bracket to learn its own standalone cost
// (the bracket's shape, and hence the height it reaches, does not depend on
// the i32.const operand's value), then rebuilt with targetCost plus that
// thunk-only cost spliced into both i32.const slots.
func buildThunk(m *wasm.Module, target uint32, targetCost uint32, globalH uint32, limit uint32) (uint32, error) {
	sig, err := m.FunctionType(target)
	if err != nil {
		return 0, err
	}

	body := func(cost uint32) wasm.Body {
		instructions := make([]wasm.Instruction, 0, len(sig.Params)+len(callPreamble(globalH, cost, limit, target))+1)
		for i := range sig.Params {
			instructions = append(instructions, wasm.LocalGetOf(uint32(i)))
		}
		instructions = append(instructions, callPreamble(globalH, cost, limit, target)...)
		instructions = append(instructions, wasm.Simple(wasm.End))
		return wasm.Body{Instructions: instructions}
	}

	typeIdx := m.AddType(sig)
	thunkIdx := m.AddFunction(typeIdx, body(targetCost))

	thunkOnlyCost, err := ComputeStackCost(thunkIdx, m)
	if err != nil {
		return 0, err
	}
	total := uint64(targetCost) + uint64(thunkOnlyCost)
	if total > 1<<32-1 {
		return 0, wasm.ErrOverflow
	}

	codeIdx, ok := m.DefinedCodeIndex(thunkIdx)
	if !ok {
		return 0, wasm.ErrMalformed
	}
	m.Code[codeIdx] = body(uint32(total))
	return thunkIdx, nil
}
