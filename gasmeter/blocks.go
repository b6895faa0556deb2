// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package gasmeter implements the gas metering instrumentation pass:
// computing metered basic blocks over a function body (spec.md §4.A),
// choosing how a charge is realized (§4.C), and splicing the charges into
// every defined function (§4.D).
package gasmeter

import (
	"github.com/Fantom-foundation/wasm-instrument/rules"
	"github.com/Fantom-foundation/wasm-instrument/wasm"
)

// MeteredBlock is a half-open instruction range [Start, …) carrying an
// accumulated gas cost, per spec.md §3.
type MeteredBlock struct {
	Start int
	Cost  uint64
}

// controlBlock is a stack entry of the control-flow analyzer: spec.md §3's
// "Control block". lowestForwardBrTarget is always initialized to the
// block's own stack index, so "may branch out" comparisons default to
// false until an actual forward branch lowers it.
type controlBlock struct {
	lowestForwardBrTarget int
	active                MeteredBlock
	isLoop                bool
}

// counter is the scratch state threaded through computeMeteredBlocks — the
// Go analogue of the teacher algorithm's per-pass stack of control frames.
// It lives only for the duration of one function's analysis, per spec.md
// §3's ownership rules.
type counter struct {
	stack     []controlBlock
	finalized []MeteredBlock
}

func (c *counter) begin(cursor int, isLoop bool) {
	c.stack = append(c.stack, controlBlock{
		lowestForwardBrTarget: len(c.stack),
		active:                MeteredBlock{Start: cursor},
		isLoop:                isLoop,
	})
}

func (c *counter) increment(cost uint32) error {
	top := &c.stack[len(c.stack)-1]
	next := top.active.Cost + uint64(cost)
	if next < top.active.Cost {
		return wasm.ErrOverflow
	}
	top.active.Cost = next
	return nil
}

// finalizeMeteredBlock closes the current active block of the top control
// block, either pushing it to the finalized list or merging its cost into
// the parent frame's active block when they share a start position — the
// "merging rule" of spec.md §4.A / §9.
func (c *counter) finalizeMeteredBlock(cursor int) error {
	top := len(c.stack) - 1
	closing := c.stack[top].active
	c.stack[top].active = MeteredBlock{Start: cursor + 1}

	if top > 0 {
		parent := &c.stack[top-1].active
		if closing.Start == parent.Start {
			next := parent.Cost + closing.Cost
			if next < parent.Cost {
				return wasm.ErrOverflow
			}
			parent.Cost = next
			return nil
		}
	}

	if closing.Cost > 0 {
		c.finalized = append(c.finalized, closing)
	}
	return nil
}

// finalizeControlBlock pops the control stack, propagating
// lowestForwardBrTarget to the new top frame, and — if the popped frame may
// have branched out to a lower index — also finalizes the new top frame's
// active block, since code it already charged for may have been skipped
// over by that branch.
func (c *counter) finalizeControlBlock(cursor int) error {
	if err := c.finalizeMeteredBlock(cursor); err != nil {
		return err
	}

	closing := c.stack[len(c.stack)-1]
	closingIndex := len(c.stack) - 1
	c.stack = c.stack[:closingIndex]

	if len(c.stack) == 0 {
		return nil
	}

	top := &c.stack[len(c.stack)-1]
	if closing.lowestForwardBrTarget < top.lowestForwardBrTarget {
		top.lowestForwardBrTarget = closing.lowestForwardBrTarget
	}

	mayBranchOut := closing.lowestForwardBrTarget < closingIndex
	if mayBranchOut {
		return c.finalizeMeteredBlock(cursor)
	}
	return nil
}

// branch records a branch instruction at cursor targeting each of indices
// (control-stack positions), finalizing the current active block and
// lowering lowestForwardBrTarget for every non-loop target.
func (c *counter) branch(cursor int, indices []int) error {
	if err := c.finalizeMeteredBlock(cursor); err != nil {
		return err
	}
	top := &c.stack[len(c.stack)-1]
	for _, idx := range indices {
		if idx < 0 || idx >= len(c.stack) {
			return wasm.ErrMalformed
		}
		if c.stack[idx].isLoop {
			continue
		}
		if idx < top.lowestForwardBrTarget {
			top.lowestForwardBrTarget = idx
		}
	}
	return nil
}

// computeMeteredBlocks runs the linear control-stack scan of spec.md §4.A
// over body, using r for per-instruction costs and localsCount for the
// per-local prologue surcharge (§4.F's CostPerLocal). The returned blocks
// are sorted by Start and non-overlapping.
func computeMeteredBlocks(body []wasm.Instruction, r rules.Rules, localsCount uint32) ([]MeteredBlock, error) {
	var c counter
	c.begin(0, false)

	localsCost := uint64(r.CostPerLocal()) * uint64(localsCount)
	if localsCount > 0 && r.CostPerLocal() > 0 && localsCost/uint64(localsCount) != uint64(r.CostPerLocal()) {
		return nil, wasm.ErrOverflow
	}
	if err := c.increment32Checked(localsCost); err != nil {
		return nil, err
	}

	for cursor, instr := range body {
		cost, ok := r.InstructionCost(instr)
		if !ok {
			return nil, wasm.ErrUnsupportedInstruction
		}

		switch instr.Op {
		case wasm.Block:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
			start := c.stack[len(c.stack)-1].active.Start
			c.begin(start, false)
		case wasm.If:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
			c.begin(cursor+1, false)
		case wasm.Loop:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
			c.begin(cursor+1, true)
		case wasm.End:
			if len(c.stack) == 0 {
				return nil, wasm.ErrMalformed
			}
			if err := c.finalizeControlBlock(cursor); err != nil {
				return nil, err
			}
		case wasm.Else:
			if err := c.finalizeMeteredBlock(cursor); err != nil {
				return nil, err
			}
		case wasm.Br, wasm.BrIf:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
			activeIdx := len(c.stack) - 1
			target := activeIdx - int(instr.Label)
			if err := c.branch(cursor, []int{target}); err != nil {
				return nil, err
			}
		case wasm.BrTable:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
			activeIdx := len(c.stack) - 1
			targets := make([]int, 0, len(instr.Labels)+1)
			targets = append(targets, activeIdx-int(instr.Default))
			for _, l := range instr.Labels {
				targets = append(targets, activeIdx-int(l))
			}
			if err := c.branch(cursor, targets); err != nil {
				return nil, err
			}
		case wasm.Return:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
			if err := c.branch(cursor, []int{0}); err != nil {
				return nil, err
			}
		default:
			if err := c.increment(cost); err != nil {
				return nil, err
			}
		}
	}

	// The body's own function-level `end` closes the implicit function
	// block; a body that stops short of it has that block closed here.
	switch len(c.stack) {
	case 0:
	case 1:
		if err := c.finalizeControlBlock(len(body)); err != nil {
			return nil, err
		}
	default:
		return nil, wasm.ErrMalformed
	}

	sortBlocks(c.finalized)
	return c.finalized, nil
}

func (c *counter) increment32Checked(v uint64) error {
	top := &c.stack[len(c.stack)-1]
	next := top.active.Cost + v
	if next < top.active.Cost {
		return wasm.ErrOverflow
	}
	top.active.Cost = next
	return nil
}

func sortBlocks(blocks []MeteredBlock) {
	// Insertion sort: function bodies are small enough (bounded by Wasm's
	// structural nesting depth driving block count) that this avoids
	// pulling in sort for what is, in practice, an already-mostly-ordered
	// sequence.
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && blocks[j-1].Start > blocks[j].Start; j-- {
			blocks[j-1], blocks[j] = blocks[j], blocks[j-1]
		}
	}
}
