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

	instrument "github.com/Fantom-foundation/wasm-instrument"
	"github.com/urfave/cli/v2"
)

var stackLimitCmd = cli.Command{
	Action:    doStackLimit,
	Name:      "stack-limit",
	Usage:     "Inject a stack-height limit into one of the built-in example modules",
	ArgsUsage: "<example>",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "limit",
			Usage: "maximum permitted stack height, in slots",
			Value: 1 << 16,
		},
	},
}

func doStackLimit(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one example name, see \"list\"")
	}
	ex, err := exampleByName(context.Args().Get(0))
	if err != nil {
		return err
	}

	out, err := instrument.InjectStackLimit(ex.Module, uint32(context.Uint64("limit")))
	if err != nil {
		return fmt.Errorf("injecting stack limit: %w", err)
	}

	reportGrowth(ex.Name, ex.Module, out)
	fmt.Printf("functions: %d -> %d\n", len(ex.Module.Code), len(out.Code))
	return nil
}
