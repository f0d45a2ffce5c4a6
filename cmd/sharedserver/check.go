package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Report a server's state with no side effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			state, err := sharedserver.Check(flags.lockDir, name)
			if err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), state.String())
			return withExitCode(state.ExitCode(), nil)
		},
	}
}
