// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/envfile"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/jwtgen"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// issuerFromFlags builds an issuer for the keypair in the configured env
// file. --account and --user override the env file entries.
func issuerFromFlags(cmd *cobra.Command, extra ...jwtgen.Option) (*jwtgen.Issuer, map[string]string, error) {
	env, err := envfile.Load(appConfig.EnvPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read %s: %w", appConfig.EnvPath, err)
	}
	kp, err := keypair.FromEnvironment(env, appConfig.Prefix)
	if err != nil {
		return nil, nil, err
	}

	account, _ := cmd.Flags().GetString("account")
	if account == "" {
		account = env[envfile.EnvName(warehouse.FieldAccount, appConfig.Prefix)]
	}
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = env[envfile.EnvName(warehouse.FieldUser, appConfig.Prefix)]
	}

	opts := append([]jwtgen.Option{
		jwtgen.WithLifetime(appConfig.Token.Lifetime),
		jwtgen.WithRenewalDelay(appConfig.Token.RenewalDelay),
	}, extra...)
	issuer, err := jwtgen.New(account, user, kp.PrivateKey(), opts...)
	if err != nil {
		return nil, nil, err
	}
	logging.Debugf("issuer for %s with key %s", issuer.QualifiedUsername(), issuer.PublicKeyFingerprint())
	return issuer, env, nil
}

func addIssuerFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "Account identifier (env file account entry when empty)")
	cmd.Flags().String("user", "", "User name (env file user entry when empty)")
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: i18n.T("cli.token.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, _, err := issuerFromFlags(cmd)
			if err != nil {
				return err
			}
			tok, err := issuer.Token()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	addIssuerFlags(cmd)
	return cmd
}

func newAuthHeaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth-header",
		Short: i18n.T("cli.auth_header.short"),
		Long: `Sign a JWT, exchange it at the OAuth token endpoint and print the
Authorization header for requests to --endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authURL, _ := cmd.Flags().GetString("auth-url")
			endpoint, _ := cmd.Flags().GetString("endpoint")
			role, _ := cmd.Flags().GetString("role")

			client := &http.Client{Timeout: appConfig.HTTP.Timeout}
			issuer, env, err := issuerFromFlags(cmd, jwtgen.WithHTTPClient(client))
			if err != nil {
				return err
			}
			if authURL == "" {
				host := env[envfile.EnvName(warehouse.FieldHost, appConfig.Prefix)]
				if host == "" {
					host = warehouse.DefaultHost(issuer.Account())
				}
				authURL = jwtgen.AuthURL(host)
			}
			if role == "" {
				role = env[envfile.EnvName(warehouse.FieldRole, appConfig.Prefix)]
			}

			headers, err := issuer.AuthHeaders(cmd.Context(), authURL, endpoint, role)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(headers))
			for k := range headers {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, headers.Get(k))
			}
			return nil
		},
	}
	addIssuerFlags(cmd)
	cmd.Flags().String("auth-url", "", "OAuth token endpoint (derived from the account host when empty)")
	cmd.Flags().String("endpoint", "", "Endpoint the token is scoped to")
	cmd.Flags().String("role", "", "Role the token is scoped to (env file role entry when empty)")
	return cmd
}
