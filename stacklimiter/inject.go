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

// InjectStackLimit runs the stack-height limiting pass (spec.md §4.E) over
// module: every call site is bracketed so the live stack-height global
// never silently exceeds limit, and every externally-reachable entry point
// (an exported function, a function referenced from an element segment, or
// the start function) is rerouted through a thunk so host-initiated entries
// are bracketed too. It never mutates module; on success it returns a new
// module, on failure the error and a nil module, leaving module untouched.
func InjectStackLimit(module *wasm.Module, limit uint32) (*wasm.Module, error) {
	m := module.Clone()

	total := m.TotalFunctions()
	costs := make([]uint32, total)
	for i := uint32(0); i < total; i++ {
		cost, err := ComputeStackCost(i, m)
		if err != nil {
			return nil, err
		}
		costs[i] = cost
	}

	globalH := m.AddGlobal(wasm.GlobalType{Type: wasm.I32, Mutable: true}, wasm.I32ConstOf(0))

	// Rewrite only the functions that existed before any thunk is appended;
	// a thunk's own single call is already bracketed by buildThunk.
	oldCodeCount := len(m.Code)
	for i := 0; i < oldCodeCount; i++ {
		m.Code[i].Instructions = rewriteCallSites(m.Code[i].Instructions, globalH, limit, costs)
	}

	thunkOf := map[uint32]uint32{}
	needThunk := func(f uint32) error {
		if f >= total || costs[f] == 0 {
			return nil
		}
		if _, ok := thunkOf[f]; ok {
			return nil
		}
		newIdx, err := buildThunk(m, f, costs[f], globalH, limit)
		if err != nil {
			return err
		}
		thunkOf[f] = newIdx
		return nil
	}

	for _, e := range m.Exports {
		if e.Kind == wasm.ExportFunction {
			if err := needThunk(e.Index); err != nil {
				return nil, err
			}
		}
	}
	for _, el := range m.Elements {
		for _, f := range el.FuncIndex {
			if err := needThunk(f); err != nil {
				return nil, err
			}
		}
	}
	if m.Start != nil {
		if err := needThunk(*m.Start); err != nil {
			return nil, err
		}
	}

	for i := range m.Exports {
		if m.Exports[i].Kind == wasm.ExportFunction {
			if t, ok := thunkOf[m.Exports[i].Index]; ok {
				m.Exports[i].Index = t
			}
		}
	}
	for i := range m.Elements {
		for j, f := range m.Elements[i].FuncIndex {
			if t, ok := thunkOf[f]; ok {
				m.Elements[i].FuncIndex[j] = t
			}
		}
	}
	if m.Start != nil {
		if t, ok := thunkOf[*m.Start]; ok {
			m.Start = &t
		}
	}

	return m, nil
}
