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

// FixupFunctionIndices adds delta to every function-kind index at or above
// threshold, in every place a function index can appear: `call` sites in
// every function body, exports of kind function, element-segment members,
// the start section, and the name section's function-name keys.
//
// This is the "central fixup" spec.md §9 calls for under "index-rewrite
// discipline": prepending an imported function (the gas pass's External
// backend) shifts every existing function index at or above the insertion
// point, and missing any one occurrence fails validation. Every caller that
// needs such a shift should go through this one function rather than
// duplicating per-section logic.
func FixupFunctionIndices(m *Module, threshold uint32, delta int32) {
	shift := func(idx uint32) uint32 {
		if idx >= threshold {
			return uint32(int64(idx) + int64(delta))
		}
		return idx
	}

	for i := range m.Code {
		fixupCallIndices(m.Code[i].Instructions, threshold, delta)
	}

	for i := range m.Exports {
		if m.Exports[i].Kind == ExportFunction {
			m.Exports[i].Index = shift(m.Exports[i].Index)
		}
	}

	for i := range m.Elements {
		for j, idx := range m.Elements[i].FuncIndex {
			m.Elements[i].FuncIndex[j] = shift(idx)
		}
	}

	if m.Start != nil {
		s := shift(*m.Start)
		m.Start = &s
	}

	if len(m.Names.FunctionNames) > 0 {
		fixed := make(map[uint32]string, len(m.Names.FunctionNames))
		for idx, name := range m.Names.FunctionNames {
			fixed[shift(idx)] = name
		}
		m.Names.FunctionNames = fixed
	}
}

func fixupCallIndices(body []Instruction, threshold uint32, delta int32) {
	for i := range body {
		if body[i].Op != Call {
			continue
		}
		if body[i].Index >= threshold {
			body[i].Index = uint32(int64(body[i].Index) + int64(delta))
		}
	}
}
