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

// FuncType is an entry of the type section: a function signature.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// ImportKind distinguishes the four things an import can name.
type ImportKind uint8

const (
	ImportFunction ImportKind = iota
	ImportGlobal
	ImportMemory
	ImportTable
)

// Import is one entry of the import section. Only the field relevant to Kind
// is meaningful.
type Import struct {
	Module, Field string
	Kind          ImportKind
	TypeIndex     uint32 // ImportFunction: index into Module.Types.
	GlobalType    GlobalType
	Memory        MemoryType
	Table         TableType
}

// GlobalType is a global's value type and mutability.
type GlobalType struct {
	Type    ValueType
	Mutable bool
}

// Global is a defined (non-imported) global: its type and its constant
// initializer expression.
type Global struct {
	Type GlobalType
	Init Instruction
}

// ExportKind distinguishes the four things an export can name.
type ExportKind uint8

const (
	ExportFunction ExportKind = iota
	ExportGlobal
	ExportMemory
	ExportTable
)

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Element is one table-initializer segment.
type Element struct {
	TableIndex uint32
	Offset     Instruction
	FuncIndex  []uint32
}

// MemoryType and TableType are the limits of a memory or table, imported or
// locally defined.
type MemoryType struct {
	Min uint32
	Max *uint32
}

type TableType struct {
	Min uint32
	Max *uint32
}

// NameSection is the subset of the Wasm custom "name" section this module
// view preserves: a mapping from defined-or-imported function index to a
// debug name (spec.md's Non-goals exclude everything else the name section
// can carry, and exclude lossless round-tripping of it besides).
type NameSection struct {
	FunctionNames map[uint32]string
}

// Module is the in-memory view both instrumentation passes read and mutate.
// It models exactly the sections spec.md §3 calls out as relevant: the type
// table, the import table, the function table, the global table, the
// export table, element segments, the code section, an optional start
// function, and the function-name subset of the name section.
//
// Function index space: all ImportFunction entries of Imports, in the order
// they appear there, come first; then Functions in order. Global index space
// is analogous for ImportGlobal entries and Globals. This matches Wasm's own
// rule and is what every driver's index-fixup logic assumes.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []uint32 // one type index per defined function
	Code      []Body   // parallel to Functions
	Tables    []TableType
	Memories  []MemoryType
	Globals   []Global
	Exports   []Export
	Elements  []Element
	Start     *uint32
	Names     NameSection
}

// New returns an empty, valid module.
func New() *Module {
	return &Module{Names: NameSection{FunctionNames: map[uint32]string{}}}
}

// Clone deep-copies m so a pass can mutate the copy and discard it on
// failure without the caller ever observing a partially-mutated module
// (spec.md §3 "ownership and lifecycle", §7 "tests verify that a failing
// input produces no partially-mutated output").
func (m *Module) Clone() *Module {
	out := &Module{
		Types:     append([]FuncType(nil), m.Types...),
		Imports:   append([]Import(nil), m.Imports...),
		Functions: append([]uint32(nil), m.Functions...),
		Tables:    append([]TableType(nil), m.Tables...),
		Memories:  append([]MemoryType(nil), m.Memories...),
		Globals:   append([]Global(nil), m.Globals...),
		Exports:   append([]Export(nil), m.Exports...),
	}
	for i := range m.Types {
		out.Types[i].Params = append([]ValueType(nil), m.Types[i].Params...)
		out.Types[i].Results = append([]ValueType(nil), m.Types[i].Results...)
	}
	out.Code = make([]Body, len(m.Code))
	for i, b := range m.Code {
		out.Code[i] = Body{
			Locals:       append([]Local(nil), b.Locals...),
			Instructions: cloneInstructions(b.Instructions),
		}
	}
	out.Elements = make([]Element, len(m.Elements))
	for i, e := range m.Elements {
		out.Elements[i] = Element{
			TableIndex: e.TableIndex,
			Offset:     e.Offset,
			FuncIndex:  append([]uint32(nil), e.FuncIndex...),
		}
	}
	if m.Start != nil {
		s := *m.Start
		out.Start = &s
	}
	out.Names.FunctionNames = make(map[uint32]string, len(m.Names.FunctionNames))
	for k, v := range m.Names.FunctionNames {
		out.Names.FunctionNames[k] = v
	}
	return out
}

func cloneInstructions(in []Instruction) []Instruction {
	out := make([]Instruction, len(in))
	copy(out, in)
	for i, instr := range in {
		out[i].Labels = append([]uint32(nil), instr.Labels...)
	}
	return out
}

// NumImportedFunctions returns the count of ImportFunction entries, i.e. the
// first index a defined function occupies.
func (m *Module) NumImportedFunctions() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Kind == ImportFunction {
			n++
		}
	}
	return n
}

// NumImportedGlobals returns the count of ImportGlobal entries.
func (m *Module) NumImportedGlobals() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Kind == ImportGlobal {
			n++
		}
	}
	return n
}

// TotalFunctions returns the size of the function index space.
func (m *Module) TotalFunctions() uint32 {
	return m.NumImportedFunctions() + uint32(len(m.Functions))
}

// TotalGlobals returns the size of the global index space.
func (m *Module) TotalGlobals() uint32 {
	return m.NumImportedGlobals() + uint32(len(m.Globals))
}

// IsImportedFunction reports whether idx names an imported function.
func (m *Module) IsImportedFunction(idx uint32) bool {
	return idx < m.NumImportedFunctions()
}

// FunctionType resolves idx (in the function index space) to its signature.
func (m *Module) FunctionType(idx uint32) (FuncType, error) {
	numImported := m.NumImportedFunctions()
	if idx < numImported {
		i := 0
		for _, imp := range m.Imports {
			if imp.Kind != ImportFunction {
				continue
			}
			if uint32(i) == idx {
				return m.typeAt(imp.TypeIndex)
			}
			i++
		}
		return FuncType{}, ErrMalformed
	}
	definedIdx := idx - numImported
	if int(definedIdx) >= len(m.Functions) {
		return FuncType{}, ErrMalformed
	}
	return m.typeAt(m.Functions[definedIdx])
}

func (m *Module) typeAt(idx uint32) (FuncType, error) {
	if int(idx) >= len(m.Types) {
		return FuncType{}, ErrMalformed
	}
	return m.Types[idx], nil
}

// DefinedCodeIndex maps a function-index-space index to the position in
// Code/Functions, or ok=false if idx names an import.
func (m *Module) DefinedCodeIndex(idx uint32) (int, bool) {
	numImported := m.NumImportedFunctions()
	if idx < numImported {
		return 0, false
	}
	definedIdx := int(idx - numImported)
	if definedIdx >= len(m.Functions) {
		return 0, false
	}
	return definedIdx, true
}

// GlobalType resolves idx (in the global index space) to its type.
func (m *Module) GlobalType(idx uint32) (GlobalType, error) {
	numImported := m.NumImportedGlobals()
	if idx < numImported {
		i := 0
		for _, imp := range m.Imports {
			if imp.Kind != ImportGlobal {
				continue
			}
			if uint32(i) == idx {
				return imp.GlobalType, nil
			}
			i++
		}
		return GlobalType{}, ErrMalformed
	}
	definedIdx := int(idx - numImported)
	if definedIdx >= len(m.Globals) {
		return GlobalType{}, ErrMalformed
	}
	return m.Globals[definedIdx].Type, nil
}

// AddType appends a new function type and returns its index.
func (m *Module) AddType(ft FuncType) uint32 {
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// AddImportFunction appends a new imported function of the given type and
// returns its function-index-space index. Because it is appended after all
// existing imports, it always receives the largest function-import index —
// every existing defined-function index must then be treated as shifted by
// one by the caller (spec.md §4.D step 2).
func (m *Module) AddImportFunction(module, field string, typeIdx uint32) uint32 {
	newIdx := m.NumImportedFunctions()
	m.Imports = append(m.Imports, Import{Module: module, Field: field, Kind: ImportFunction, TypeIndex: typeIdx})
	return newIdx
}

// AddGlobal appends a new defined global and returns its global-index-space
// index.
func (m *Module) AddGlobal(t GlobalType, init Instruction) uint32 {
	newIdx := m.TotalGlobals()
	m.Globals = append(m.Globals, Global{Type: t, Init: init})
	return newIdx
}

// AddFunction appends a new defined function (with the given type and body)
// at the end of the function index space and returns its index. Unlike
// AddImportFunction, this never shifts any existing index.
func (m *Module) AddFunction(typeIdx uint32, body Body) uint32 {
	newIdx := m.TotalFunctions()
	m.Functions = append(m.Functions, typeIdx)
	m.Code = append(m.Code, body)
	return newIdx
}

// AddExport appends a new export entry.
func (m *Module) AddExport(name string, kind ExportKind, index uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Index: index})
}
