// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package analysiscache memoizes stacklimiter.ComputeStackCost by a content
// hash of a function's own signature, locals, instructions, and the signatures of every
// function its call/call_indirect instructions reference, for callers that
// probe the same function repeatedly (spec.md §5's performance note,
// exercised by cmd/wasm-instrument's stack-cost subcommand). It never
// affects the pure functional contract of the analysis it wraps — a caller
// that skips this package and calls stacklimiter.ComputeStackCost directly
// gets identical answers, just without the speed-up.
package analysiscache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"

	"github.com/Fantom-foundation/wasm-instrument/stacklimiter"
	"github.com/Fantom-foundation/wasm-instrument/wasm"
)

const defaultCapacity = 4096

// Cache wraps an LRU of content-hash to stack cost, the same
// github.com/hashicorp/golang-lru/v2 construction go/interpreter/lfvm's
// code-conversion cache uses for a deterministic-transform-by-hash.
type Cache struct {
	entries *lru.Cache[[32]byte, uint32]
}

// New returns a Cache holding up to capacity entries.
func New(capacity int) (*Cache, error) {
	entries, err := lru.New[[32]byte, uint32](capacity)
	if err != nil {
		return nil, fmt.Errorf("analysiscache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// NewDefault returns a Cache sized for typical CLI/batch-analysis use.
func NewDefault() *Cache {
	c, err := New(defaultCapacity)
	if err != nil {
		panic(err)
	}
	return c
}

// ComputeStackCost is stacklimiter.ComputeStackCost, memoized by a hash of
// funcIdx's own signature, declared locals, instruction sequence, and the signature of
// every function its call/call_indirect instructions reference — exactly
// the inputs stacklimiter.computeMaxHeight's abstract interpreter reads, so
// two functions only ever share a cache entry when they are guaranteed to
// analyze to the same cost. Two functions with byte-identical bodies and
// identically-signatured callees — even in different modules, or
// before/after an edit elsewhere in the same module that doesn't touch a
// referenced callee's signature — share one entry.
func (c *Cache) ComputeStackCost(funcIdx uint32, module *wasm.Module) (uint32, error) {
	if module.IsImportedFunction(funcIdx) {
		return 0, nil
	}
	codeIdx, ok := module.DefinedCodeIndex(funcIdx)
	if !ok {
		return 0, wasm.ErrMalformed
	}

	sig, err := module.FunctionType(funcIdx)
	if err != nil {
		return 0, err
	}
	key, err := hashBody(module, sig, module.Code[codeIdx])
	if err != nil {
		return 0, err
	}
	if cost, ok := c.entries.Get(key); ok {
		return cost, nil
	}

	cost, err := stacklimiter.ComputeStackCost(funcIdx, module)
	if err != nil {
		return 0, err
	}
	c.entries.Add(key, cost)
	return cost, nil
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

func hashBody(module *wasm.Module, sig wasm.FuncType, body wasm.Body) ([32]byte, error) {
	var buf bytes.Buffer
	// The function's own result count sets its outermost frame's arities.
	encodeFuncType(&buf, sig)
	for _, l := range body.Locals {
		_ = binary.Write(&buf, binary.LittleEndian, l.Count)
		buf.WriteByte(byte(l.Type))
	}
	for _, instr := range body.Instructions {
		if err := encodeInstruction(&buf, module, instr); err != nil {
			return [32]byte{}, err
		}
	}
	return sha3.Sum256(buf.Bytes()), nil
}

func encodeInstruction(buf *bytes.Buffer, module *wasm.Module, instr wasm.Instruction) error {
	_ = binary.Write(buf, binary.LittleEndian, uint16(instr.Op))
	_ = binary.Write(buf, binary.LittleEndian, instr.I32)
	_ = binary.Write(buf, binary.LittleEndian, instr.I64)
	_ = binary.Write(buf, binary.LittleEndian, instr.F32)
	_ = binary.Write(buf, binary.LittleEndian, instr.F64)
	_ = binary.Write(buf, binary.LittleEndian, instr.Index)
	_ = binary.Write(buf, binary.LittleEndian, instr.Mem.Align)
	_ = binary.Write(buf, binary.LittleEndian, instr.Mem.Offset)
	buf.WriteByte(byte(instr.Block.Kind))
	buf.WriteByte(byte(instr.Block.Value))
	_ = binary.Write(buf, binary.LittleEndian, instr.Label)
	_ = binary.Write(buf, binary.LittleEndian, instr.Default)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(instr.Labels)))
	for _, l := range instr.Labels {
		_ = binary.Write(buf, binary.LittleEndian, l)
	}

	// computeMaxHeight's Call/CallIndirect cases size a call site purely
	// from the callee's parameter and result counts — fold that signature
	// in so two bodies that call same-shaped-but-differently-signatured
	// callees never collide on the same key (the callee's own body is
	// irrelevant to the caller's cost and is deliberately not hashed).
	switch instr.Op {
	case wasm.Call:
		sig, err := module.FunctionType(instr.Index)
		if err != nil {
			return err
		}
		encodeFuncType(buf, sig)
	case wasm.CallIndirect:
		if int(instr.Index) >= len(module.Types) {
			return wasm.ErrMalformed
		}
		encodeFuncType(buf, module.Types[instr.Index])
	}
	return nil
}

func encodeFuncType(buf *bytes.Buffer, sig wasm.FuncType) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(sig.Params)))
	for _, p := range sig.Params {
		buf.WriteByte(byte(p))
	}
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(sig.Results)))
	for _, r := range sig.Results {
		buf.WriteByte(byte(r))
	}
}
