// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/Fantom-foundation/wasm-instrument/wasm"
	"github.com/dsnet/golib/unitconv"
)

// instructionCount sums the instruction count across every defined function
// body, the closest proxy this module has to a module's encoded size absent
// a binary encoder.
func instructionCount(m *wasm.Module) int {
	n := 0
	for _, body := range m.Code {
		n += len(body.Instructions)
	}
	return n
}

// reportGrowth prints a before/after instruction count and the growth ratio,
// using the same human-readable-rate formatting the conformance driver uses
// for its throughput figures.
func reportGrowth(label string, before, after *wasm.Module) {
	b, a := instructionCount(before), instructionCount(after)
	ratio := 1.0
	if b > 0 {
		ratio = float64(a) / float64(b)
	}
	fmt.Printf(
		"%s: %s instructions -> %s instructions (%.2fx)\n",
		label,
		unitconv.FormatPrefix(float64(b), unitconv.SI, 0),
		unitconv.FormatPrefix(float64(a), unitconv.SI, 0),
		ratio,
	)
}
