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

// replaceMemoryGrow rewrites every `memory.grow` in body into a call to
// growCounterFunc, reporting how many occurrences were replaced.
func replaceMemoryGrow(body []wasm.Instruction, growCounterFunc uint32) int {
	n := 0
	for i := range body {
		if body[i].Op == wasm.MemoryGrow {
			body[i] = wasm.CallOf(growCounterFunc)
			n++
		}
	}
	return n
}

// addGrowCounter synthesizes and appends the `(i32) -> i32` grow-counter
// function that charges costPerPage gas per page before delegating to the
// real memory.grow, per spec.md §4.C's dynamic memory-growth cost. It
// returns the new function's index.
//
// The synthesized body mirrors the analyzer's own charge-site shape: it
// duplicates the requested page delta, widens it to i64, multiplies by
// costPerPage, and calls chargeFunc before re-issuing memory.grow 0.
func addGrowCounter(m *wasm.Module, chargeFunc uint32, costPerPage uint32) uint32 {
	sig := m.AddType(wasm.FuncType{
		Params:  []wasm.ValueType{wasm.I32},
		Results: []wasm.ValueType{wasm.I32},
	})
	body := wasm.Body{
		Instructions: []wasm.Instruction{
			wasm.LocalGetOf(0),
			wasm.LocalGetOf(0),
			wasm.Simple(wasm.I64ExtendI32U),
			wasm.I64ConstOf(int64(costPerPage)),
			wasm.Simple(wasm.I64Mul),
			wasm.CallOf(chargeFunc),
			wasm.Simple(wasm.MemoryGrow),
			wasm.Simple(wasm.End),
		},
	}
	return m.AddFunction(sig, body)
}

// needsGrowCounter reports whether r's memory-growth cost requires
// synthesizing a grow-counter function at all.
func needsGrowCounter(r rules.Rules) (costPerPage uint32, ok bool) {
	grow := r.MemoryGrowCost()
	if grow.Kind != rules.Linear {
		return 0, false
	}
	return grow.CostPerPage, true
}
