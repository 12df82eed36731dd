package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var getCmd = &cobra.Command{
	Use:   "get <service> <account>",
	Short: "Print a stored password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kr, err := openKeyring()
		if err != nil {
			return err
		}
		val, err := kr.GetPassword(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), val)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <service> <account> [password]",
	Short: "Store a password",
	Long:  "Store a password. If password is omitted, prompts on a terminal or reads stdin (useful for piping).",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kr, err := openKeyring()
		if err != nil {
			return err
		}

		var value string
		if len(args) == 3 {
			value = args[2]
		} else {
			value, err = readPassword(cmd)
			if err != nil {
				return err
			}
		}

		if err := kr.SetPassword(args[0], args[1], value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password for %s/%s stored in %s\n", args[0], args[1], kr.Backend())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <service> <account>",
	Short:   "Remove a stored password",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kr, err := openKeyring()
		if err != nil {
			return err
		}
		if err := kr.DeletePassword(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password for %s/%s deleted\n", args[0], args[1])
		return nil
	},
}

func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)
}
