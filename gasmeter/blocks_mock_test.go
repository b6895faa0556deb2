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
	"testing"

	"github.com/Fantom-foundation/wasm-instrument/rules"
	"github.com/Fantom-foundation/wasm-instrument/wasm"
	"go.uber.org/mock/gomock"
)

// TestComputeMeteredBlocks_DrivenByMockRules checks that computeMeteredBlocks
// never hardcodes a cost of its own: every charge in the resulting blocks
// comes from exactly what rules.Rules reports, including the per-local
// surcharge. Driven by rules.MockRules rather than ConstantCostRules so each
// instruction can be given a distinct, asserted-on cost.
func TestComputeMeteredBlocks_DrivenByMockRules(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := rules.NewMockRules(ctrl)

	body := []wasm.Instruction{
		wasm.GlobalGetOf(0),
		wasm.IfOf(wasm.BlockTypeEmpty),
		wasm.GlobalGetOf(0),
		wasm.Simple(wasm.Else),
		wasm.GlobalGetOf(0),
		wasm.Simple(wasm.End),
	}

	r.EXPECT().CostPerLocal().Return(uint32(7)).AnyTimes()
	r.EXPECT().InstructionCost(wasm.GlobalGetOf(0)).Return(uint32(3), true).Times(3)
	r.EXPECT().InstructionCost(wasm.IfOf(wasm.BlockTypeEmpty)).Return(uint32(5), true)
	r.EXPECT().InstructionCost(wasm.Simple(wasm.Else)).Return(uint32(0), true)
	r.EXPECT().InstructionCost(wasm.Simple(wasm.End)).Return(uint32(0), true)

	const localsCount = 2
	blocks, err := computeMeteredBlocks(body, r, localsCount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Outer block: locals surcharge (7*2=14) + global.get (3) + if (5) = 22.
	// Then-branch: one global.get = 3. Else-branch: one global.get = 3.
	want := []MeteredBlock{
		{Start: 0, Cost: 22},
		{Start: 2, Cost: 3},
		{Start: 4, Cost: 3},
	}
	if len(blocks) != len(want) {
		t.Fatalf("want %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d: want %+v, got %+v", i, want[i], blocks[i])
		}
	}
}

// TestComputeMeteredBlocks_UnsupportedInstructionFromMockRules checks that
// computeMeteredBlocks surfaces rules.Rules.InstructionCost's ok=false
// exactly as spec.md §4.A requires, without first charging anything for the
// rejected instruction.
func TestComputeMeteredBlocks_UnsupportedInstructionFromMockRules(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := rules.NewMockRules(ctrl)

	body := []wasm.Instruction{
		wasm.Simple(wasm.Unreachable),
		wasm.Simple(wasm.End),
	}
	r.EXPECT().CostPerLocal().Return(uint32(0)).AnyTimes()
	r.EXPECT().InstructionCost(wasm.Simple(wasm.Unreachable)).Return(uint32(0), false)

	if _, err := computeMeteredBlocks(body, r, 0); err != wasm.ErrUnsupportedInstruction {
		t.Errorf("want ErrUnsupportedInstruction, got %v", err)
	}
}
