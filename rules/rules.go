// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package rules defines the pluggable per-instruction cost interface the
// gas metering pass consults (spec.md §4.F), plus a constant-cost reference
// implementation.
package rules

import "github.com/Fantom-foundation/wasm-instrument/wasm"

//go:generate mockgen -source rules.go -destination rules_mock.go -package rules

// Rules supplies per-instruction cost and memory-growth dynamic cost to the
// gas metering pass.
type Rules interface {
	// InstructionCost returns the cost of instr in gas units. ok is false
	// when instr is forbidden by this rule set — the gas pass fails with
	// wasm.ErrUnsupportedInstruction in that case.
	InstructionCost(instr wasm.Instruction) (cost uint32, ok bool)

	// MemoryGrowCost returns how memory.grow's dynamic, page-count-
	// dependent cost should be charged.
	MemoryGrowCost() MemoryGrowCost

	// CostPerLocal is a surcharge added, per declared local slot, to a
	// function's prologue charge.
	CostPerLocal() uint32
}

// MemoryGrowCostKind distinguishes the two ways memory.grow may be charged.
type MemoryGrowCostKind uint8

const (
	// Free means memory.grow's dynamic cost is skipped; only its static
	// InstructionCost applies.
	Free MemoryGrowCostKind = iota
	// Linear means memory.grow is charged CostPerPage for every page the
	// memory is grown by, via a synthesized grow-counter function.
	Linear
)

// MemoryGrowCost is the result of Rules.MemoryGrowCost.
type MemoryGrowCost struct {
	Kind        MemoryGrowCostKind
	CostPerPage uint32
}

// ConstantCostRules is the reference Rules implementation: every
// instruction costs the same fixed amount, and the memory-growth and
// per-local surcharges are each a single configured constant.
type ConstantCostRules struct {
	InstrCost    uint32
	Grow         MemoryGrowCost
	PerLocalCost uint32
}

// DefaultConstantCostRules returns a ConstantCostRules charging 1 gas per
// instruction, no dynamic memory-growth cost, and 1 gas per local — matching
// `original_source/src/gas_metering/mod.rs`'s `Default` impl
// (`call_per_local_cost: 1`), the rule set used by spec.md §8 scenarios 1–3.
func DefaultConstantCostRules() ConstantCostRules {
	return ConstantCostRules{InstrCost: 1, PerLocalCost: 1}
}

// NewConstantCostRules builds a ConstantCostRules. A growCostPerPage of 0
// means Free; any other value selects Linear with that per-page cost,
// matching spec.md §8 scenario 4's `ConstantCostRules::new(1, 10_000, 1)`.
func NewConstantCostRules(instrCost, growCostPerPage, perLocalCost uint32) ConstantCostRules {
	grow := MemoryGrowCost{Kind: Free}
	if growCostPerPage > 0 {
		grow = MemoryGrowCost{Kind: Linear, CostPerPage: growCostPerPage}
	}
	return ConstantCostRules{InstrCost: instrCost, Grow: grow, PerLocalCost: perLocalCost}
}

func (r ConstantCostRules) InstructionCost(wasm.Instruction) (uint32, bool) {
	return r.InstrCost, true
}

func (r ConstantCostRules) MemoryGrowCost() MemoryGrowCost { return r.Grow }

func (r ConstantCostRules) CostPerLocal() uint32 { return r.PerLocalCost }

var _ Rules = ConstantCostRules{}
