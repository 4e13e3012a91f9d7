// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the root command, loads configuration before every
// subcommand and registers the subcommands.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xorq-labs/snowflake-keypair-helper/buildvars"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/config"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
)

const modulePath = "github.com/xorq-labs/snowflake-keypair-helper"

var version = buildvars.VersionOrDefault("dev")
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)
var cfgFile string
var verbose bool

var appConfig config.Config

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.SetDebug(verbose || appConfig.Debug)
	i18n.Init(appConfig.Language)
	logging.Debugf("config loaded: prefix=%s env_path=%s ledger=%q", appConfig.Prefix, appConfig.EnvPath, appConfig.Ledger.Type)
	return nil
}

// Execute runs the CLI entrypoint. The main package should call this
// function and handle process exit.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Command help is built before the config is read; honor the env override.
	i18n.Init(os.Getenv("SFKP_LANGUAGE"))

	return NewRootCmd().ExecuteContext(ctx)
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command.
// Tests call it for a fresh command tree per run.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snowflake-keypair-helper",
		Short: i18n.T("cli.root.short"),
		Long: `snowflake-keypair-helper generates RSA keypairs for Snowflake key-pair
authentication, stores them in shell env files, registers public keys on
users and issues the JWTs Snowflake accepts for programmatic access.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupDefaultServices,
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `Message language ("en", "de")`)
	cmd.PersistentFlags().String("prefix", "SNOWFLAKE_", "Prefix of the credential environment variables")
	cmd.PersistentFlags().String("env-path", ".envrc.secrets.snowflake.keypair", "Env file holding the keypair")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("cli.version.short"),
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newGenerateKeypairCmd(),
		newValidateCmd(),
		newAssignPublicKeyCmd(),
		newDeassignPublicKeyCmd(),
		newCreateUserCmd(),
		newGrantModifyAuthRoleCmd(),
		newTokenCmd(),
		newAuthHeaderCmd(),
		newFingerprintCmd(),
		newShowPublicKeyCmd(),
		newConvertKeyCmd(),
		newHistoryCmd(),
		newInitConfigCmd(),
		newListCLICommandsCmd(),
		versionCmd,
	)

	return cmd
}

// newListCLICommandsCmd prints one "name: help" line per subcommand.
func newListCLICommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-cli-commands",
		Short: i18n.T("cli.list_cli_commands.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range cmd.Root().Commands() {
				if !c.IsAvailableCommand() || c.Name() == "completion" {
					continue
				}
				help := c.Short
				if help == "" {
					help = i18n.T("cli.no_help")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Name(), help)
			}
			return nil
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: i18n.T("cli.init_config.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, _ := cmd.Flags().GetBool("system")
			path, err := config.WriteConfigFile(&appConfig, system)
			if err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.init_config.written", path))
			return nil
		},
	}
	cmd.Flags().Bool("system", false, "Write to the system-wide config path instead of the user one")
	return cmd
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our version as a dependency.
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
