package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

func newListCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every server recorded in the lock directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return sharedserver.WatchList(cmd.Context(), flags.lockDir, func(infos []sharedserver.Info, err error) {
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
						return
					}
					printList(cmd, infos)
				})
			}
			infos, err := sharedserver.List(flags.lockDir)
			if err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			return printList(cmd, infos)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reprint the list whenever a record changes, until interrupted")
	return cmd
}

func printList(cmd *cobra.Command, infos []sharedserver.Info) error {
	if flags.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	for _, info := range infos {
		if err := printInfo(cmd, info); err != nil {
			return err
		}
	}
	return nil
}
