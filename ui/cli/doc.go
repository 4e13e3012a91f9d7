// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface using Cobra. It loads
// configuration, opens warehouse sessions and the optional ledger, and
// delegates the work to the `core`, `keypair` and `jwtgen` packages. CLI code
// should remain thin.
package cli
