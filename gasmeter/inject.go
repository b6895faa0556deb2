// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gasmeter

import (
	"github.com/Fantom-foundation/wasm-instrument/rules"
	"github.com/Fantom-foundation/wasm-instrument/wasm"
)

// Inject runs the gas metering pass (spec.md §4.D) over module, using
// backend to realize charges and r to price instructions. It never mutates
// module: on success it returns a new, instrumented module; on failure it
// returns the error and a nil module, and module is left untouched.
func Inject(module *wasm.Module, backend Backend, r rules.Rules) (*wasm.Module, error) {
	m := module.Clone()

	oldFuncCount := m.TotalFunctions()

	chargeFunc, selfCost, err := backend.Prepare(m, r)
	if err != nil {
		return nil, err
	}

	growCostPerPage, needsGrow := needsGrowCounter(r)
	needGrowCounter := false
	// No function is added between here and the addGrowCounter call below,
	// so this is exactly the index addGrowCounter will hand out.
	growFuncIdx := m.TotalFunctions()

	// The charge function itself, if synthesized (Internal backend), is
	// always the last entry in Code and must not be re-instrumented.
	injectCount := len(m.Code)
	if chargeFunc >= oldFuncCount {
		injectCount--
	}

	for i := 0; i < injectCount; i++ {
		body := m.Code[i]

		localsCount, err := body.NumLocalSlots()
		if err != nil {
			return nil, err
		}

		blocks, err := computeMeteredBlocks(body.Instructions, r, localsCount)
		if err != nil {
			return nil, err
		}

		instrumented, err := spliceCharges(body.Instructions, blocks, selfCost, chargeFunc)
		if err != nil {
			return nil, err
		}

		if needsGrow && replaceMemoryGrow(instrumented, growFuncIdx) > 0 {
			needGrowCounter = true
		}

		m.Code[i].Instructions = instrumented
	}

	if needGrowCounter {
		addGrowCounter(m, chargeFunc, growCostPerPage)
	}

	return m, nil
}

// spliceCharges rebuilds body with, at the start of each block in blocks
// (sorted and non-overlapping), the two-instruction charge sequence
// `i64.const <cost> ; call chargeFunc` of spec.md's invariant 4 — cost
// being the block's own accumulated cost plus selfCost, checked for
// overflow.
func spliceCharges(body []wasm.Instruction, blocks []MeteredBlock, selfCost uint64, chargeFunc uint32) ([]wasm.Instruction, error) {
	out := make([]wasm.Instruction, 0, len(body)+2*len(blocks))
	next := 0

	for cursor := 0; cursor <= len(body); cursor++ {
		for next < len(blocks) && blocks[next].Start == cursor {
			total := blocks[next].Cost + selfCost
			if total < blocks[next].Cost {
				return nil, wasm.ErrOverflow
			}
			// i64.const's operand is a bit pattern; this reinterprets a
			// large unsigned cost as its two's-complement i64 encoding,
			// matching how the gas-check preamble reads it back via
			// i64.ge_u rather than a signed comparison.
			out = append(out, wasm.I64ConstOf(int64(total)), wasm.CallOf(chargeFunc))
			next++
		}
		if cursor < len(body) {
			out = append(out, body[cursor])
		}
	}

	if next != len(blocks) {
		return nil, wasm.ErrMalformed
	}
	return out, nil
}
