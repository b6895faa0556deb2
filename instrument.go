// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package instrument is a thin facade over gasmeter and stacklimiter for
// consumers who would rather not import subpackages directly: two pure
// entry points, InjectGas and InjectStackLimit, plus ComputeStackCost and
// the two Backend constructors.
package instrument

import (
	"github.com/Fantom-foundation/wasm-instrument/gasmeter"
	"github.com/Fantom-foundation/wasm-instrument/rules"
	"github.com/Fantom-foundation/wasm-instrument/stacklimiter"
	"github.com/Fantom-foundation/wasm-instrument/wasm"
)

// InjectGas runs the gas metering pass over module, see gasmeter.Inject.
func InjectGas(module *wasm.Module, backend gasmeter.Backend, r rules.Rules) (*wasm.Module, error) {
	return gasmeter.Inject(module, backend, r)
}

// InjectStackLimit runs the stack-height limiting pass over module, see
// stacklimiter.InjectStackLimit.
func InjectStackLimit(module *wasm.Module, limit uint32) (*wasm.Module, error) {
	return stacklimiter.InjectStackLimit(module, limit)
}

// ComputeStackCost reports funcIdx's stack cost without injecting anything,
// see stacklimiter.ComputeStackCost.
func ComputeStackCost(funcIdx uint32, module *wasm.Module) (uint32, error) {
	return stacklimiter.ComputeStackCost(funcIdx, module)
}

// HostFunction returns the External gas backend: charges are delegated to
// an imported host function moduleName.fieldName.
func HostFunction(moduleName, fieldName string) gasmeter.Backend {
	return gasmeter.HostFunctionBackend(moduleName, fieldName)
}

// MutableGlobal returns the Internal gas backend: charges decrement a
// synthesized mutable i64 global exported as globalName.
func MutableGlobal(globalName string) gasmeter.Backend {
	return gasmeter.MutableGlobalBackend(globalName)
}
