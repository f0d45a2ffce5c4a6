package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Low-level and recovery operations",
	}
	cmd.AddCommand(
		newAdminStartCommand(),
		newAdminStopCommand(),
		newAdminKillCommand(),
		newAdminIncrefCommand(),
		newAdminDecrefCommand(),
		newAdminDoctorCommand(),
		newAdminDebugCommand(),
	)
	return cmd
}

func newAdminStartCommand() *cobra.Command {
	var lf launchFlags
	cmd := &cobra.Command{
		Use:   "start <name> -- cmd args...",
		Short: "Launch a server with no initial client (refcount starts at 0)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cmdArgs := args[1:]
			cfg := sharedserver.LaunchConfig{
				Command:        cmdArgs[0],
				Args:           cmdArgs[1:],
				Env:            parseEnv(lf.env),
				LogFile:        lf.logFile,
				GracePeriod:    lf.gracePeriod,
				ShutdownSignal: lf.shutdownSignal,
				StartupWindow:  lf.startupWindow,
			}
			server, err := sharedserver.AdminStart(flags.lockDir, name, cfg)
			if err != nil {
				return withExitCode(sharedserver.ExitCodeForError(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started pid=%d watcher_pid=%d\n", server.PID, server.WatcherPID)
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	addLaunchFlags(cmd, &lf)
	return cmd
}

func newAdminStopCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stop <name>",
		Short: "Signal the server to shut down; the watcher observes the exit and cleans up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sharedserver.AdminStop(flags.lockDir, args[0], force); err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "escalate to a hard-kill signal")
	return cmd
}

func newAdminKillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <name>",
		Short: "Emergency path: hard-kill the server and watcher, unlink both records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sharedserver.AdminKill(flags.lockDir, args[0]); err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			return nil
		},
	}
}

func newAdminIncrefCommand() *cobra.Command {
	var pid int
	var metadata string
	cmd := &cobra.Command{
		Use:   "incref <name>",
		Short: "Attach a client pid (explicit, low-level; --pid defaults to the current pid)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid == 0 {
				pid = os.Getpid()
			}
			if err := sharedserver.Incref(flags.lockDir, args[0], pid, metadata); err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "client pid (defaults to the current pid)")
	cmd.Flags().StringVar(&metadata, "metadata", "", "free-form text stored alongside the client entry")
	return cmd
}

func newAdminDecrefCommand() *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "decref <name>",
		Short: "Detach a client pid (explicit, low-level; --pid defaults to the current pid)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid == 0 {
				pid = os.Getpid()
			}
			warned, err := sharedserver.Decref(flags.lockDir, args[0], pid)
			if err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			if warned {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: pid %d was not attached to %q\n", pid, args[0])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "client pid (defaults to the current pid)")
	return cmd
}

func newAdminDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [name]",
		Short: "Validate and repair invariants, reporting each action taken",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reports []sharedserver.DoctorReport
			var err error
			if len(args) == 1 {
				var report sharedserver.DoctorReport
				report, err = sharedserver.AdminDoctor(flags.lockDir, args[0])
				reports = []sharedserver.DoctorReport{report}
			} else {
				reports, err = sharedserver.AdminDoctorAll(flags.lockDir)
			}
			for _, report := range reports {
				if len(report.Actions) == 0 {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", report.Name)
				for _, action := range report.Actions {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", action)
				}
			}
			if err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			return nil
		},
	}
}

func newAdminDebugCommand() *cobra.Command {
	var follow bool
	var limit int
	cmd := &cobra.Command{
		Use:   "debug <name>",
		Short: "Emit recent invocation history for a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			print := func(e sharedserver.InvocationLogEntry) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %-8s ok=%-5t %s\n", e.Time, e.Op, e.OK, e.Err)
			}
			if follow {
				return sharedserver.FollowInvocationLog(context.Background(), flags.lockDir, name, print)
			}
			entries, err := sharedserver.ReadInvocationLog(flags.lockDir, name, limit)
			if err != nil {
				return withExitCode(sharedserver.ExitError, err)
			}
			for _, e := range entries {
				print(e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "tail the debug log instead of dumping it once")
	cmd.Flags().IntVar(&limit, "limit", 0, "only show the most recent N entries (0 means all)")
	return cmd
}
