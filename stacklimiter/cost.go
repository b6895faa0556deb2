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

// ComputeStackCost implements spec.md §4.E step 3: a defined function's
// stack cost is its declared-local count plus its maximum value-stack
// height, the latter computed with the call-overhead flag on so the cost
// already accounts for the transient slots the preamble/postamble this
// package's injection driver inserts around every call. Imported functions
// always cost 0 (§4.E step 1).
func ComputeStackCost(funcIdx uint32, module *wasm.Module) (uint32, error) {
	if module.IsImportedFunction(funcIdx) {
		return 0, nil
	}
	codeIdx, ok := module.DefinedCodeIndex(funcIdx)
	if !ok {
		return 0, wasm.ErrMalformed
	}

	localsCount, err := module.Code[codeIdx].NumLocalSlots()
	if err != nil {
		return 0, err
	}
	height, err := computeMaxHeight(module, funcIdx, true)
	if err != nil {
		return 0, err
	}

	cost := uint64(localsCount) + uint64(height)
	if cost > 1<<32-1 {
		return 0, wasm.ErrOverflow
	}
	return uint32(cost), nil
}
