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

// Backend chooses how a metered block's charge is realized at each charge
// site, per spec.md §4.C. Prepare installs whatever the backend needs into
// m — an imported host function, or a synthesized global and function — and
// returns the function index every charge site should `call`, plus
// selfCost: the charge function's own execution cost under r, added to
// every block's charge so its overhead is itself accounted for (0 for the
// host-function backend, whose cost is metered by the host instead).
type Backend interface {
	Prepare(m *wasm.Module, r rules.Rules) (chargeFunc uint32, selfCost uint64, err error)
}

// hostFunctionBackend is the External gas meter: charges are delegated to a
// host-provided import of type `(i64) -> ()`, with no cost attributed to
// the call itself inside the module (the host meters it).
type hostFunctionBackend struct {
	module, field string
}

// HostFunctionBackend returns a Backend that imports a charge function
// named module.field, of type `(i64) -> ()`. Because the import is
// appended after any existing function imports, every previously-existing
// defined-function index is shifted up by one; Prepare performs that shift via
// wasm.FixupFunctionIndices before returning.
func HostFunctionBackend(module, field string) Backend {
	return hostFunctionBackend{module: module, field: field}
}

func (b hostFunctionBackend) Prepare(m *wasm.Module, _ rules.Rules) (uint32, uint64, error) {
	threshold := m.NumImportedFunctions()
	sig := m.AddType(wasm.FuncType{Params: []wasm.ValueType{wasm.I64}})
	idx := m.AddImportFunction(b.module, b.field, sig)
	wasm.FixupFunctionIndices(m, threshold, 1)
	return idx, 0, nil
}

// mutableGlobalBackend is the Internal gas meter: a mutable i64 global
// holds the remaining gas budget (left for the host to initialize before
// execution and to read back on trap), exported under globalName, and
// charges call a synthesized function that decrements it.
type mutableGlobalBackend struct {
	globalName string
}

// MutableGlobalBackend returns a Backend that synthesizes a mutable i64
// global (initialized to zero, exported as globalName) and a defined charge
// function appended to the end of the function index space — so, unlike
// HostFunctionBackend, it never shifts any existing index.
//
// The charge function's body is the normative shape of spec.md §4.C /
// §9 (not either earlier `i64.sub`/`tee`/`i64.lt_s` draft):
//
//	global.get $gas
//	local.get 0
//	i64.ge_u
//	if
//	  global.get $gas
//	  local.get 0
//	  i64.sub
//	  global.set $gas
//	else
//	  i64.const -1      ;; u64::MAX sentinel
//	  global.set $gas
//	  unreachable
//	end
func MutableGlobalBackend(globalName string) Backend {
	return mutableGlobalBackend{globalName: globalName}
}

// sumInstructionCost checked-sums the cost of each instruction under r.
func sumInstructionCost(r rules.Rules, instrs []wasm.Instruction) (uint64, error) {
	var total uint64
	for _, instr := range instrs {
		cost, ok := r.InstructionCost(instr)
		if !ok {
			return 0, wasm.ErrUnsupportedInstruction
		}
		next := total + uint64(cost)
		if next < total {
			return 0, wasm.ErrOverflow
		}
		total = next
	}
	return total, nil
}

// chargeFuncSelfCost computes self_cost per spec.md §4.C: the rule-sum cost
// of the whole charge-function body, checked-subtracted by the cost of the
// three fail-path instructions (`i64.const -1`, `global.set`,
// `unreachable`) that only ever execute once, at the point of exhaustion,
// never on the per-call happy path this cost is meant to approximate.
func chargeFuncSelfCost(r rules.Rules, body []wasm.Instruction, failPath []wasm.Instruction) (uint64, error) {
	full, err := sumInstructionCost(r, body)
	if err != nil {
		return 0, err
	}
	fail, err := sumInstructionCost(r, failPath)
	if err != nil {
		return 0, err
	}
	if fail > full {
		return 0, wasm.ErrOverflow
	}
	return full - fail, nil
}

func (b mutableGlobalBackend) Prepare(m *wasm.Module, r rules.Rules) (uint32, uint64, error) {
	globalIdx := m.AddGlobal(wasm.GlobalType{Type: wasm.I64, Mutable: true}, wasm.I64ConstOf(0))
	m.AddExport(b.globalName, wasm.ExportGlobal, globalIdx)

	failPath := []wasm.Instruction{
		wasm.I64ConstOf(-1),
		wasm.GlobalSetOf(globalIdx),
		wasm.Simple(wasm.Unreachable),
	}
	instructions := []wasm.Instruction{
		wasm.GlobalGetOf(globalIdx),
		wasm.LocalGetOf(0),
		wasm.Simple(wasm.I64GeU),
		wasm.IfOf(wasm.BlockTypeEmpty),
		wasm.GlobalGetOf(globalIdx),
		wasm.LocalGetOf(0),
		wasm.Simple(wasm.I64Sub),
		wasm.GlobalSetOf(globalIdx),
		wasm.Simple(wasm.Else),
		failPath[0], failPath[1], failPath[2],
		wasm.Simple(wasm.End),
		wasm.Simple(wasm.End),
	}

	selfCost, err := chargeFuncSelfCost(r, instructions, failPath)
	if err != nil {
		return 0, 0, err
	}

	sig := m.AddType(wasm.FuncType{Params: []wasm.ValueType{wasm.I64}})
	idx := m.AddFunction(sig, wasm.Body{Instructions: instructions})
	return idx, selfCost, nil
}
