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
	"reflect"
	"testing"

	"github.com/Fantom-foundation/wasm-instrument/rules"
	"github.com/Fantom-foundation/wasm-instrument/wasm"
)

// TestHostFunctionBackend_ShiftsExistingCallsAndExports exercises spec.md
// invariant 2: prepending an imported function shifts every existing
// function-kind index across call sites, exports, elements, start, and
// the name section.
func TestHostFunctionBackend_ShiftsExistingCallsAndExports(t *testing.T) {
	m := wasm.New()
	voidType := m.AddType(wasm.FuncType{})

	helper := m.AddFunction(voidType, wasm.Body{Instructions: []wasm.Instruction{wasm.Simple(wasm.End)}})
	main := m.AddFunction(voidType, wasm.Body{
		Instructions: []wasm.Instruction{wasm.CallOf(helper), wasm.Simple(wasm.End)},
	})
	m.AddExport("main", wasm.ExportFunction, main)
	m.Elements = append(m.Elements, wasm.Element{FuncIndex: []uint32{helper, main}})
	start := main
	m.Start = &start
	m.Names.FunctionNames[helper] = "helper"
	m.Names.FunctionNames[main] = "main"

	backend := HostFunctionBackend("env", "gas")
	chargeFunc, _, err := backend.Prepare(m, rules.DefaultConstantCostRules())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chargeFunc != 0 {
		t.Fatalf("want the import to take index 0, got %d", chargeFunc)
	}

	wantHelper, wantMain := helper+1, main+1

	mainCodeIdx, ok := m.DefinedCodeIndex(wantMain)
	if !ok {
		t.Fatalf("shifted main index %d does not resolve to a defined function", wantMain)
	}
	call := m.Code[mainCodeIdx].Instructions[0]
	if !reflect.DeepEqual(call, wasm.CallOf(wantHelper)) {
		t.Errorf("want call to shifted helper index %d, got %+v", wantHelper, call)
	}
	if m.Exports[0].Index != wantMain {
		t.Errorf("want export index shifted to %d, got %d", wantMain, m.Exports[0].Index)
	}
	if m.Elements[0].FuncIndex[0] != wantHelper || m.Elements[0].FuncIndex[1] != wantMain {
		t.Errorf("want element members shifted, got %+v", m.Elements[0].FuncIndex)
	}
	if m.Start == nil || *m.Start != wantMain {
		t.Errorf("want start shifted to %d, got %v", wantMain, m.Start)
	}
	if m.Names.FunctionNames[wantHelper] != "helper" || m.Names.FunctionNames[wantMain] != "main" {
		t.Errorf("want name entries shifted, got %+v", m.Names.FunctionNames)
	}
}
