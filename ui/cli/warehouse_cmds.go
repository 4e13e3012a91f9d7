// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/config"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/core"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/envfile"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// sessionRequest says where connection credentials come from.
type sessionRequest struct {
	EnvrcPath     string
	Authenticator string
}

// openSession connects with the credentials in the process environment,
// overlaid with the env file at req.EnvrcPath. Tests replace it.
var openSession = func(ctx context.Context, cfg config.Config, req sessionRequest) (warehouse.Session, error) {
	env, err := envfile.Load(req.EnvrcPath)
	if err != nil {
		return nil, fmt.Errorf("could not read credentials: %w", err)
	}

	auth := warehouse.DetectAuthenticator(env, cfg.Prefix)
	if req.Authenticator != "" {
		if auth, err = warehouse.ParseAuthenticator(req.Authenticator); err != nil {
			return nil, err
		}
	}
	creds, err := warehouse.CredentialsFromEnv(env, auth, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	id, err := warehouse.IdentityFromEnv(env, cfg.Prefix, warehouse.Defaults{
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
	})
	if err != nil {
		return nil, err
	}

	logging.Debugf("connecting to %s as %s (%s)", id.Account, creds.Username(), auth)
	s, err := warehouse.Open(ctx, id, creds)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// addSessionFlags registers the flags every connecting command shares.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("envrc-path", os.DevNull, "Env file with connection credentials, layered over the process environment")
	cmd.Flags().String("authenticator", "", "Authenticator: password, mfa, keypair or sso (detected when empty)")
}

// withSession opens a session from the command's flags, runs fn and closes it.
func withSession(cmd *cobra.Command, fn func(warehouse.Session) error) error {
	envrcPath, _ := cmd.Flags().GetString("envrc-path")
	auth, _ := cmd.Flags().GetString("authenticator")

	s, err := openSession(cmd.Context(), appConfig, sessionRequest{EnvrcPath: envrcPath, Authenticator: auth})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logging.Warnf("could not close session: %v", cerr)
		}
	}()
	return fn(s)
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: i18n.T("cli.validate.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s warehouse.Session) error {
				if _, err := s.Exec(cmd.Context(), "SELECT 1"); err != nil {
					return fmt.Errorf("connection check failed: %w", err)
				}
				id := s.Identity()
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.validate.ok", id.Account, id.User))
				return nil
			})
		},
	}
	addSessionFlags(cmd)
	return cmd
}

// publicKeyFromFlags returns the PEM public key named by exactly one of
// --public-key-str and --path.
func publicKeyFromFlags(cmd *cobra.Command) (string, error) {
	keyStr, _ := cmd.Flags().GetString("public-key-str")
	path, _ := cmd.Flags().GetString("path")

	switch {
	case keyStr == "" && path == "":
		return "", fmt.Errorf("%w: one of --public-key-str or --path is required", ErrUsage)
	case keyStr != "" && path != "":
		return "", fmt.Errorf("%w: --public-key-str and --path are mutually exclusive", ErrUsage)
	case path != "":
		env, err := envfile.ParseFile(path)
		if err != nil {
			return "", err
		}
		name := envfile.EnvName(keypair.FieldPublicKey, appConfig.Prefix)
		v, ok := env[name]
		if !ok {
			return "", fmt.Errorf("%w: %s in %s", keypair.ErrMissingEntry, name, path)
		}
		keyStr = v
	}
	return armor.Wrap(strings.TrimSpace(keyStr), armor.PublicKey, false), nil
}

func newAssignPublicKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign-public-key <user>",
		Short: i18n.T("cli.assign_public_key.short"),
		Long: `Set RSA_PUBLIC_KEY on a user. The key is given inline with
--public-key-str (PEM or one line) or read from the public key entry of
the env file at --path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			publicKey, err := publicKeyFromFlags(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s warehouse.Session) error {
				return withAudit(cmd.Context(), func(a core.AuditWriter) error {
					if _, err := core.RunAssignPublicKeyCmd(cmd.Context(), s, a, user, publicKey); err != nil {
						return err
					}
					body, _ := armor.StripPublicKey(publicKey)
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.assign_public_key.done", abbreviate(body), user))
					return nil
				})
			})
		},
	}
	cmd.Flags().String("public-key-str", "", "Public key text, PEM or a single line")
	cmd.Flags().String("path", "", "Env file to read the public key from")
	addSessionFlags(cmd)
	return cmd
}

func newDeassignPublicKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deassign-public-key <user>",
		Short: i18n.T("cli.deassign_public_key.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s warehouse.Session) error {
				return withAudit(cmd.Context(), func(a core.AuditWriter) error {
					if _, err := core.RunDeassignPublicKeyCmd(cmd.Context(), s, a, args[0]); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.deassign_public_key.done", args[0]))
					return nil
				})
			})
		},
	}
	addSessionFlags(cmd)
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user <user>",
		Short: i18n.T("cli.create_user.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaultWarehouse, _ := cmd.Flags().GetString("default-warehouse")
			if defaultWarehouse == "" {
				defaultWarehouse = appConfig.Warehouse
			}
			return withSession(cmd, func(s warehouse.Session) error {
				return withAudit(cmd.Context(), func(a core.AuditWriter) error {
					if _, err := core.RunCreateUserCmd(cmd.Context(), s, a, args[0], defaultWarehouse); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.create_user.done", args[0]))
					return nil
				})
			})
		},
	}
	cmd.Flags().String("default-warehouse", "", "Default warehouse of the new user (config warehouse when empty)")
	addSessionFlags(cmd)
	return cmd
}

func newGrantModifyAuthRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant-modify-auth-role <role> <on-user> <to-user>",
		Short: i18n.T("cli.grant_modify_auth_role.short"),
		Long: `Create <role> if needed, allow it to modify the programmatic
authentication methods of <on-user> and grant it to <to-user>.
Runs as USERADMIN.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, onUser, toUser := args[0], args[1], args[2]
			return withSession(cmd, func(s warehouse.Session) error {
				return withAudit(cmd.Context(), func(a core.AuditWriter) error {
					if _, err := core.RunGrantModifyAuthRoleCmd(cmd.Context(), s, a, role, onUser, toUser); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.grant_modify_auth_role.done", role, toUser, onUser))
					return nil
				})
			})
		},
	}
	addSessionFlags(cmd)
	return cmd
}

// abbreviate shortens a key body for display.
func abbreviate(s string) string {
	const keep = 12
	if len(s) <= 2*keep {
		return s
	}
	return s[:keep] + "..." + s[len(s)-keep:]
}
