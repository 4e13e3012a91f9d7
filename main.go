// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for snowflake-keypair-helper.
//
// Usage:
//
//	go run . <command> [flags]
//	./snowflake-keypair-helper <command> [flags]
//
// See --help for the commands.
package main

import (
	"os"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
	"github.com/xorq-labs/snowflake-keypair-helper/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
