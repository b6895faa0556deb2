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

import (
	"reflect"
	"testing"

	"github.com/Fantom-foundation/wasm-instrument/wasm"
)

func threeDeepBody() []wasm.Instruction {
	return []wasm.Instruction{
		wasm.I32ConstOf(1), wasm.I32ConstOf(2), wasm.I32ConstOf(3),
		wasm.Simple(wasm.Drop), wasm.Simple(wasm.Drop), wasm.Simple(wasm.Drop),
		wasm.Simple(wasm.End),
	}
}

// TestInject_CallSitePreamble mirrors spec.md §8 scenario 5: a function f
// with cost(f) = 3 whose every call site is rewritten to the full
// preamble/call/postamble sequence of §4.E, using limit 1024.
func TestInject_CallSitePreamble(t *testing.T) {
	m := wasm.New()
	voidType := m.AddType(wasm.FuncType{})
	f := m.AddFunction(voidType, wasm.Body{Instructions: threeDeepBody()})
	main := m.AddFunction(voidType, wasm.Body{
		Instructions: []wasm.Instruction{wasm.CallOf(f), wasm.Simple(wasm.End)},
	})

	out, err := InjectStackLimit(m, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	globalH := uint32(0)
	want := append(callPreamble(globalH, 3, 1024, f), wasm.Simple(wasm.End))

	mainCodeIdx, ok := out.DefinedCodeIndex(main)
	if !ok {
		t.Fatalf("main index %d does not resolve to a defined function", main)
	}
	got := out.Code[mainCodeIdx].Instructions
	if len(got) != len(want) {
		t.Fatalf("want %d instructions, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("instr %d: want %+v, got %+v", i, want[i], got[i])
		}
	}

	if len(out.Globals) != 1 || out.Globals[0].Type != (wasm.GlobalType{Type: wasm.I32, Mutable: true}) {
		t.Errorf("want one mutable i32 global, got %+v", out.Globals)
	}

	// input module must be left untouched
	fCodeIdx, _ := m.DefinedCodeIndex(f)
	if len(m.Code[fCodeIdx].Instructions) != len(threeDeepBody()) {
		t.Errorf("input module was mutated")
	}
}

// TestInject_ThunkGeneration mirrors spec.md §8 scenario 6: an exported
// function f with cost(f) = 5 is rerouted, post-injection, through a thunk
// of identical signature. The thunk's bracket charges cost(f) plus the
// thunk's own stack cost: with no parameters, the bracket's
// global.get/i32.const pairs and the call-overhead slots peak at height 2.
func TestInject_ThunkGeneration(t *testing.T) {
	m := wasm.New()
	voidType := m.AddType(wasm.FuncType{})
	f := m.AddFunction(voidType, wasm.Body{
		Instructions: []wasm.Instruction{
			wasm.I32ConstOf(1), wasm.I32ConstOf(2), wasm.I32ConstOf(3), wasm.I32ConstOf(4), wasm.I32ConstOf(5),
			wasm.Simple(wasm.Drop), wasm.Simple(wasm.Drop), wasm.Simple(wasm.Drop), wasm.Simple(wasm.Drop), wasm.Simple(wasm.Drop),
			wasm.Simple(wasm.End),
		},
	})
	m.AddExport("f", wasm.ExportFunction, f)

	out, err := InjectStackLimit(m, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Exports[0].Index == f {
		t.Fatalf("want export rerouted to a thunk, still points at original index %d", f)
	}
	thunkIdx := out.Exports[0].Index

	thunkSig, err := out.FunctionType(thunkIdx)
	if err != nil {
		t.Fatalf("unexpected error resolving thunk signature: %v", err)
	}
	origSig, _ := out.FunctionType(f)
	if len(thunkSig.Params) != len(origSig.Params) || len(thunkSig.Results) != len(origSig.Results) {
		t.Errorf("want thunk signature to match original, got %+v vs %+v", thunkSig, origSig)
	}

	globalH := uint32(0)
	want := append(callPreamble(globalH, 5+2, 1024, f), wasm.Simple(wasm.End))
	thunkCodeIdx, ok := out.DefinedCodeIndex(thunkIdx)
	if !ok {
		t.Fatalf("thunk index %d does not resolve to a defined function", thunkIdx)
	}
	got := out.Code[thunkCodeIdx].Instructions
	if len(got) != len(want) {
		t.Fatalf("want %d thunk instructions, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("thunk instr %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestInject_ZeroCostFunctionNotThunked(t *testing.T) {
	m := wasm.New()
	voidType := m.AddType(wasm.FuncType{})
	f := m.AddFunction(voidType, wasm.Body{Instructions: []wasm.Instruction{wasm.Simple(wasm.End)}})
	m.AddExport("f", wasm.ExportFunction, f)

	out, err := InjectStackLimit(m, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Exports[0].Index != f {
		t.Errorf("want zero-cost export left unthunked at index %d, got %d", f, out.Exports[0].Index)
	}
	if len(out.Functions) != 1 {
		t.Errorf("want no thunk appended, got %d functions", len(out.Functions))
	}
}
