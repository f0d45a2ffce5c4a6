package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

func newUnuseCommand() *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "unuse <name>",
		Short: "Detach as a client (sugar for admin decref with a parent-pid default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if pid == 0 {
				pid = os.Getppid()
			}
			warned, err := sharedserver.Unuse(flags.lockDir, name, pid)
			if err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			if warned {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: pid %d was not attached to %q\n", pid, name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "client pid to detach (defaults to the caller's parent pid)")
	return cmd
}
