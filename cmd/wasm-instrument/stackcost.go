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

	"github.com/Fantom-foundation/wasm-instrument/internal/analysiscache"
	"github.com/urfave/cli/v2"
)

var stackCostCmd = cli.Command{
	Action:    doStackCost,
	Name:      "stack-cost",
	Usage:     "Print the stack-height cost of every defined function in one of the built-in example modules",
	ArgsUsage: "<example>",
}

// doStackCost runs over every defined function of the chosen example, which
// is exactly the repeated-probe-of-the-same-module pattern analysiscache is
// for (spec.md §5's performance note): functions sharing a body (the
// arithmetic example's is the simplest case) are only analyzed once.
func doStackCost(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one example name, see \"list\"")
	}
	ex, err := exampleByName(context.Args().Get(0))
	if err != nil {
		return err
	}

	cache := analysiscache.NewDefault()
	imported := ex.Module.NumImportedFunctions()
	for i := range ex.Module.Code {
		idx := imported + uint32(i)
		cost, err := cache.ComputeStackCost(idx, ex.Module)
		if err != nil {
			return fmt.Errorf("function %d: %w", idx, err)
		}
		name := ex.Module.Names.FunctionNames[idx]
		if name == "" {
			name = "-"
		}
		fmt.Printf("function %-4d %-16s cost %d\n", idx, name, cost)
	}
	return nil
}
