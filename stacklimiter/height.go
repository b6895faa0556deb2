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

// callOverheadSlots is the number of value-stack slots the call-site
// preamble/postamble of §4.E transiently pushes around every instrumented
// `call`. countCallOverhead sizing passes account for this so that a
// function's reported stack cost reflects what it will look like after
// instrumentation, not before.
const callOverheadSlots = 2

// frame is a control-stack entry of the abstract interpreter (spec.md
// §4.B), mirroring the teacher-adjacent original's Frame/Stack split but
// tracking only height (slot count), never value types or byte weight —
// this package treats every value type as one slot, per spec.md's
// contract.
type frame struct {
	isPolymorphic bool
	endArity      int
	branchArity   int
	startHeight   int
}

type interpreter struct {
	height             int
	max                int
	frames             []frame
	countCallOverhead  bool
}

func (ip *interpreter) top() *frame {
	return &ip.frames[len(ip.frames)-1]
}

// observe records the current height against the running maximum, unless
// the active frame is polymorphic (unreachable code after a branch,
// contributing nothing further to the max).
func (ip *interpreter) observe() {
	if !ip.top().isPolymorphic && ip.height > ip.max {
		ip.max = ip.height
	}
}

// observeWithBonus is observe, but as if n extra slots were transiently on
// the stack — used by call sites when countCallOverhead is set.
func (ip *interpreter) observeWithBonus(n int) {
	if !ip.top().isPolymorphic && ip.height+n > ip.max {
		ip.max = ip.height + n
	}
}

// pop removes n values from the operand stack, respecting the current
// frame's polymorphic flag: once a frame is polymorphic, popping below its
// start height is free (the abstract machine treats unreachable code as
// having an infinite supply of values), matching spec.md's rationale for
// why branches and `unreachable` mark a frame polymorphic.
func (ip *interpreter) pop(n int) error {
	for i := 0; i < n; i++ {
		top := ip.top()
		if ip.height <= top.startHeight {
			if top.isPolymorphic {
				continue
			}
			return wasm.ErrStackUnderflow
		}
		ip.height--
	}
	return nil
}

func (ip *interpreter) push(n int) { ip.height += n }

func (ip *interpreter) pushFrame(f frame) { ip.frames = append(ip.frames, f) }

func (ip *interpreter) popFrame() (frame, error) {
	if len(ip.frames) == 0 {
		return frame{}, wasm.ErrMalformed
	}
	f := ip.frames[len(ip.frames)-1]
	ip.frames = ip.frames[:len(ip.frames)-1]
	return f, nil
}

// computeMaxHeight implements spec.md §4.B: the maximum value-stack height
// reached by funcIdx's body, not counting its parameters or locals.
// countCallOverhead additionally accounts for the transient slots the
// call-site preamble/postamble will occupy, for sizing thunks and
// instrumented functions (§4.E).
func computeMaxHeight(m *wasm.Module, funcIdx uint32, countCallOverhead bool) (uint32, error) {
	sig, err := m.FunctionType(funcIdx)
	if err != nil {
		return 0, err
	}
	codeIdx, ok := m.DefinedCodeIndex(funcIdx)
	if !ok {
		return 0, wasm.ErrMalformed
	}
	body := m.Code[codeIdx].Instructions
	resultArity := len(sig.Results)

	ip := &interpreter{countCallOverhead: countCallOverhead}
	ip.pushFrame(frame{endArity: resultArity, branchArity: resultArity, startHeight: 0})

	for _, instr := range body {
		ip.observe()

		switch instr.Op {
		case wasm.Block, wasm.Loop, wasm.If:
			if instr.Op == wasm.If {
				if err := ip.pop(1); err != nil {
					return 0, err
				}
			}
			arity := instr.Block.Arity()
			branchArity := arity
			if instr.Op == wasm.Loop {
				branchArity = 0
			}
			ip.pushFrame(frame{endArity: arity, branchArity: branchArity, startHeight: ip.height})

		case wasm.Else:
			// leave the frame pushed by `if` as-is.

		case wasm.End:
			f, err := ip.popFrame()
			if err != nil {
				return 0, err
			}
			ip.height = f.startHeight
			ip.push(f.endArity)

		case wasm.Br:
			target, err := targetFrame(ip.frames, instr.Label)
			if err != nil {
				return 0, err
			}
			if err := ip.pop(target.branchArity); err != nil {
				return 0, err
			}
			ip.top().isPolymorphic = true

		case wasm.BrIf:
			target, err := targetFrame(ip.frames, instr.Label)
			if err != nil {
				return 0, err
			}
			if err := ip.pop(target.branchArity); err != nil {
				return 0, err
			}
			if err := ip.pop(1); err != nil {
				return 0, err
			}
			ip.push(target.branchArity)

		case wasm.BrTable:
			allLabels := append([]uint32{instr.Default}, instr.Labels...)
			target, err := targetFrame(ip.frames, allLabels[0])
			if err != nil {
				return 0, err
			}
			for _, label := range allLabels[1:] {
				other, err := targetFrame(ip.frames, label)
				if err != nil {
					return 0, err
				}
				if other.branchArity != target.branchArity {
					return 0, wasm.ErrMalformed
				}
			}
			if err := ip.pop(target.branchArity); err != nil {
				return 0, err
			}
			ip.top().isPolymorphic = true

		case wasm.Return:
			if err := ip.pop(resultArity); err != nil {
				return 0, err
			}
			ip.top().isPolymorphic = true

		case wasm.Unreachable:
			ip.top().isPolymorphic = true

		case wasm.Call:
			calleeSig, err := m.FunctionType(instr.Index)
			if err != nil {
				return 0, err
			}
			if ip.countCallOverhead {
				ip.observeWithBonus(callOverheadSlots)
			}
			if err := ip.pop(len(calleeSig.Params)); err != nil {
				return 0, err
			}
			ip.push(len(calleeSig.Results))

		case wasm.CallIndirect:
			if int(instr.Index) >= len(m.Types) {
				return 0, wasm.ErrMalformed
			}
			calleeSig := m.Types[instr.Index]
			if ip.countCallOverhead {
				ip.observeWithBonus(callOverheadSlots)
			}
			if err := ip.pop(1 + len(calleeSig.Params)); err != nil {
				return 0, err
			}
			ip.push(len(calleeSig.Results))

		default:
			pop, push, ok := simpleEffect(instr.Op)
			if !ok {
				return 0, wasm.ErrMalformed
			}
			if err := ip.pop(pop); err != nil {
				return 0, err
			}
			ip.push(push)
		}
	}

	if len(ip.frames) != 0 {
		return 0, wasm.ErrMalformed
	}
	return uint32(ip.max), nil
}

// targetFrame resolves a relative branch depth to the frame it refers to,
// counting from the top of the control stack.
func targetFrame(frames []frame, relDepth uint32) (frame, error) {
	idx := len(frames) - 1 - int(relDepth)
	if idx < 0 || idx >= len(frames) {
		return frame{}, wasm.ErrMalformed
	}
	return frames[idx], nil
}
