// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/core"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
	sshfmt "github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/ssh"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
)

// stdoutPath selects standard output wherever a path argument is expected.
const stdoutPath = "-"

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

func newGenerateKeypairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-keypair [path|-]",
		Short: i18n.T("cli.generate_keypair.short"),
		Long: `Generate a 2048 bit RSA keypair and write it as an env file.
Without a path the configured env_path is used; "-" prints to stdout.
The private key is encrypted unless --no-encrypted is given. Without
--password a random password is generated and stored next to the key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGenerateKeypair,
	}
	cmd.Flags().String("password", "", "Password for the private key (generated when empty)")
	cmd.Flags().Bool("prompt-password", false, "Read the password from the terminal")
	cmd.Flags().Bool("encrypted", true, "Encrypt the private key")
	cmd.Flags().Bool("no-encrypted", false, "Write the private key unencrypted")
	cmd.Flags().Bool("oneline", true, "Write key bodies on a single line")
	cmd.Flags().Bool("export", false, "Prefix each line with 'export '")
	cmd.MarkFlagsMutuallyExclusive("password", "prompt-password")
	cmd.MarkFlagsMutuallyExclusive("encrypted", "no-encrypted")
	return cmd
}

func runGenerateKeypair(cmd *cobra.Command, args []string) error {
	path := appConfig.EnvPath
	if len(args) == 1 {
		path = args[0]
	}

	password, _ := cmd.Flags().GetString("password")
	if prompt, _ := cmd.Flags().GetBool("prompt-password"); prompt {
		var err error
		if password, err = promptPassword(cmd); err != nil {
			return err
		}
	}
	encrypted, _ := cmd.Flags().GetBool("encrypted")
	if noEncrypted, _ := cmd.Flags().GetBool("no-encrypted"); noEncrypted {
		encrypted = false
	}
	oneline, _ := cmd.Flags().GetBool("oneline")
	export, _ := cmd.Flags().GetBool("export")

	var kp keypair.Keypair
	err := withAudit(cmd.Context(), func(a core.AuditWriter) error {
		var err error
		kp, err = core.GenerateKeypair(cmd.Context(), password, a)
		return err
	})
	if err != nil {
		return err
	}

	var dest keypair.Destination = keypair.ToFile{Path: path}
	if path == stdoutPath {
		dest = keypair.ToStdout{W: cmd.OutOrStdout()}
	}
	opts := keypair.EnvOptions{Prefix: appConfig.Prefix, Encrypted: encrypted, Oneline: oneline, Export: export}
	if _, err := kp.ToEnvironmentFile(dest, opts); err != nil {
		return err
	}
	if path != stdoutPath {
		fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.generate_keypair.written", path))
	}
	return nil
}

// loadKeypair reads the keypair from the env file at path, falling back to
// the configured env_path.
func loadKeypair(path string) (keypair.Keypair, error) {
	if path == "" {
		path = appConfig.EnvPath
	}
	kp, err := keypair.FromEnvironmentFile(path, appConfig.Prefix)
	if err != nil {
		return keypair.Keypair{}, fmt.Errorf("could not load keypair from %s: %w", path, err)
	}
	return kp, nil
}

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [path]",
		Short: i18n.T("cli.fingerprint.short"),
		Long: `Print the fingerprint Snowflake reports as RSA_PUBLIC_KEY_FP and the
OpenSSH fingerprint of the same public key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := loadKeypair(firstArg(args))
			if err != nil {
				return err
			}
			fp, err := kp.Fingerprint()
			if err != nil {
				return err
			}
			sshFP, err := sshfmt.FingerprintSHA256(kp.PublicKey())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rsa_public_key_fp: %s\n", fp)
			fmt.Fprintf(out, "openssh: %s\n", sshFP)
			return nil
		},
	}
}

func newShowPublicKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-public-key [path]",
		Short: i18n.T("cli.show_public_key.short"),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			comment, _ := cmd.Flags().GetString("comment")
			copyIt, _ := cmd.Flags().GetBool("copy")

			kp, err := loadKeypair(firstArg(args))
			if err != nil {
				return err
			}

			var text string
			switch format {
			case "pem":
				text, err = kp.PublicPEM()
			case "oneline":
				var pemText string
				if pemText, err = kp.PublicPEM(); err == nil {
					text, err = armor.StripPublicKey(pemText)
				}
			case "openssh":
				text, err = sshfmt.AuthorizedKey(kp.PublicKey(), comment)
			default:
				return fmt.Errorf("%w: unknown --format %q (want pem, oneline or openssh)", ErrUsage, format)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			if copyIt {
				if err := copyToClipboard(text); err != nil {
					return fmt.Errorf("could not copy to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.show_public_key.copied"))
			}
			return nil
		},
	}
	cmd.Flags().String("format", "pem", "Output format: pem, oneline or openssh")
	cmd.Flags().String("comment", "", "Comment appended to the openssh form")
	cmd.Flags().Bool("copy", false, "Also copy the key to the clipboard")
	return cmd
}

func newConvertKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert-key <in> <out|->",
		Short: i18n.T("cli.convert_key.short"),
		Long: `Re-serialize a private key file. The input container (PEM or DER) is
detected from its content. Converting to pem-encrypted without
--to-password generates a password and prints it to stderr.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromPassword, _ := cmd.Flags().GetString("from-password")
			to, _ := cmd.Flags().GetString("to")
			toPassword, _ := cmd.Flags().GetString("to-password")

			var container keyfmt.Container
			switch to {
			case "pem-encrypted":
				container = keyfmt.PEM
				if toPassword == "" {
					generated, err := keypair.GeneratePassword(keypair.PasswordLength)
					if err != nil {
						return err
					}
					toPassword = generated
					fmt.Fprintf(cmd.ErrOrStderr(), "password: %s\n", toPassword)
				}
			case "pem", "der":
				if toPassword != "" {
					return fmt.Errorf("%w: --to-password only applies to pem-encrypted", ErrUsage)
				}
				container = keyfmt.PEM
				if to == "der" {
					container = keyfmt.DER
				}
			default:
				return fmt.Errorf("%w: unknown --to %q (want pem-encrypted, pem or der)", ErrUsage, to)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("could not read %s: %w", args[0], err)
			}
			converted, err := keypair.Transcode(data, fromPassword, container, toPassword)
			if err != nil {
				return err
			}

			if args[1] == stdoutPath {
				_, err := cmd.OutOrStdout().Write(converted)
				return err
			}
			if err := os.WriteFile(args[1], converted, 0o600); err != nil {
				return fmt.Errorf("could not write %s: %w", args[1], err)
			}
			logging.Debugf("converted %s to %s (%s)", args[0], args[1], to)
			fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.convert_key.written", args[1]))
			return nil
		},
	}
	cmd.Flags().String("from-password", "", "Password of the input key, if encrypted")
	cmd.Flags().String("to", "pem-encrypted", "Output form: pem-encrypted, pem or der")
	cmd.Flags().String("to-password", "", "Password for pem-encrypted output")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
