package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Print the combined server/clients record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			info, err := sharedserver.GetInfo(flags.lockDir, name)
			if err != nil {
				if flags.json {
					if encErr := printInfo(cmd, sharedserver.Info{Name: name, Error: err.Error()}); encErr != nil {
						return withExitCode(sharedserver.ExitError, encErr)
					}
					return withExitCode(sharedserver.ExitCodeForError(err), nil)
				}
				return withExitCode(sharedserver.ExitError, err)
			}
			return printInfo(cmd, *info)
		},
	}
}

func printInfo(cmd *cobra.Command, info sharedserver.Info) error {
	if flags.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s pid=%-8d refcount=%d\n", info.Name, info.State, info.PID, info.Refcount)
	if info.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", info.Error)
	}
	return nil
}
