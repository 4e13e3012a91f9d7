// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
)

var errPasswordMismatch = errors.New("passwords do not match")

// promptPassword asks for a key password twice. Terminal input is read
// without echo; anything else is read line by line.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	fmt.Fprint(cmd.ErrOrStderr(), i18n.T("cli.prompt.password"))
	first, err := readSecret(cmd, in, reader)
	if err != nil {
		return "", err
	}
	fmt.Fprint(cmd.ErrOrStderr(), i18n.T("cli.prompt.confirm"))
	second, err := readSecret(cmd, in, reader)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}

func readSecret(cmd *cobra.Command, in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return string(b), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
