package main

import (
	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

// newWatchCommand is the hidden entrypoint launch.go's startWatcher
// self-re-execs into. It is never meant to be invoked directly by a user
// and is excluded from help output and shell completions.
func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "__watch <name>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sharedserver.Watch(cmd.Context(), flags.lockDir, args[0])
		},
	}
	return cmd
}
