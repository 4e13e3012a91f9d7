// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package warehouse

import (
	"context"
	"strings"
)

// SplitStatements splits a script on semicolons outside single-quoted
// literals. Each statement keeps its trailing semicolon; blanks are dropped.
func SplitStatements(script string) []string {
	var (
		out     []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && stmt != ";" {
			out = append(out, stmt)
		}
		current.Reset()
	}
	for _, r := range script {
		current.WriteRune(r)
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ';' && !quoted:
			flush()
		}
	}
	flush()
	return out
}

// ExecScript runs every statement of script on e.
func ExecScript(ctx context.Context, e Executor, script string) ([]Record, error) {
	return e.Exec(ctx, SplitStatements(script)...)
}
