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

	"github.com/Fantom-foundation/wasm-instrument/examples"
	"github.com/urfave/cli/v2"
)

var listCmd = cli.Command{
	Action: doList,
	Name:   "list",
	Usage:  "List the built-in example modules usable as input to the other commands",
}

func doList(*cli.Context) error {
	for _, ex := range examples.All() {
		fmt.Printf("%-16s entry point: function %d\n", ex.Name, ex.EntryPoint)
	}
	return nil
}

// exampleByName resolves one of the built-in fixtures by name, since this
// module has no Wasm binary decoder (spec.md's non-goals stop short of
// round-tripping arbitrary modules) — the example registry doubles as the
// CLI's "textual module description format".
func exampleByName(name string) (examples.Example, error) {
	for _, ex := range examples.All() {
		if ex.Name == name {
			return ex, nil
		}
	}
	return examples.Example{}, fmt.Errorf("unknown example %q, see the \"list\" command", name)
}
