package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benaskins/keyring"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List keyring backends and which one is active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active := ""
		if kr, err := openKeyring(); err != nil {
			slog.Debug("no usable backend", "error", err)
		} else {
			active = kr.Backend()
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSUPPORTED\tACTIVE")
		for _, name := range keyring.Names() {
			mark := ""
			if name == active {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%v\t%s\n", name, keyring.Supported(name), mark)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
