// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/core"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/ledger"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
)

var openLedger = ledger.Open

// withAudit runs fn with the configured ledger as audit writer, or with no
// writer when the ledger is disabled or cannot be opened.
func withAudit(ctx context.Context, fn func(core.AuditWriter) error) error {
	if appConfig.Ledger.Type == "" {
		return fn(nil)
	}
	store, err := openLedger(ctx, appConfig.Ledger.Type, appConfig.Ledger.DSN)
	if err != nil {
		logging.Warnf("ledger unavailable, continuing without audit: %v", err)
		return fn(nil)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Warnf("could not close ledger: %v", cerr)
		}
	}()
	return fn(store)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: i18n.T("cli.history.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if appConfig.Ledger.Type == "" {
				fmt.Fprintln(out, i18n.T("cli.history.disabled"))
				return nil
			}

			user, _ := cmd.Flags().GetString("user")
			fingerprint, _ := cmd.Flags().GetString("fingerprint")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openLedger(cmd.Context(), appConfig.Ledger.Type, appConfig.Ledger.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), ledger.Filter{User: user, Fingerprint: fingerprint, Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, i18n.T("cli.history.empty"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTION\tUSER\tFINGERPRINT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.Action, orDash(e.User), orDash(e.Fingerprint))
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("user", "", "Only show events for this user")
	cmd.Flags().String("fingerprint", "", "Only show events for this public key fingerprint")
	cmd.Flags().Int("limit", 50, "Maximum number of events (0 for all)")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
