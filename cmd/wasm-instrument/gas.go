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
	"github.com/Fantom-foundation/wasm-instrument/gasmeter"
	"github.com/Fantom-foundation/wasm-instrument/rules"
	"github.com/urfave/cli/v2"
)

var gasCmd = cli.Command{
	Action:    doGas,
	Name:      "gas",
	Usage:     "Inject gas metering into one of the built-in example modules",
	ArgsUsage: "<example>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "charge-site backend: \"host\" (imported host function) or \"global\" (mutable global counter)",
			Value: "host",
		},
		&cli.StringFlag{
			Name:  "module",
			Usage: "host import module name, for the \"host\" backend",
			Value: "env",
		},
		&cli.StringFlag{
			Name:  "field",
			Usage: "host import field name, for the \"host\" backend",
			Value: "gas",
		},
		&cli.StringFlag{
			Name:  "global",
			Usage: "exported counter global name, for the \"global\" backend",
			Value: "gas_left",
		},
	},
}

func doGas(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one example name, see \"list\"")
	}
	ex, err := exampleByName(context.Args().Get(0))
	if err != nil {
		return err
	}

	var backend gasmeter.Backend
	switch context.String("backend") {
	case "host":
		backend = instrument.HostFunction(context.String("module"), context.String("field"))
	case "global":
		backend = instrument.MutableGlobal(context.String("global"))
	default:
		return fmt.Errorf("unknown backend %q, use \"host\" or \"global\"", context.String("backend"))
	}

	out, err := instrument.InjectGas(ex.Module, backend, rules.DefaultConstantCostRules())
	if err != nil {
		return fmt.Errorf("injecting gas metering: %w", err)
	}

	reportGrowth(ex.Name, ex.Module, out)
	return nil
}
