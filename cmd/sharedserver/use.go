package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharedserver/sharedserver"
)

// launchFlags are the flags shared by any command that may launch a server
// (use, admin start): grace period, metadata, environment, log file, and
// shutdown signal.
type launchFlags struct {
	pid            int
	metadata       string
	env            []string
	logFile        string
	gracePeriod    string
	shutdownSignal string
	startupWindow  time.Duration
}

func addLaunchFlags(cmd *cobra.Command, lf *launchFlags) {
	cmd.Flags().IntVar(&lf.pid, "pid", 0, "client pid to register (defaults to the caller's parent pid)")
	cmd.Flags().StringVar(&lf.metadata, "metadata", "", "free-form text stored alongside the client entry")
	cmd.Flags().StringArrayVar(&lf.env, "env", nil, "environment variable K=V to pass to the launched server (repeatable)")
	cmd.Flags().StringVar(&lf.logFile, "log-file", "", "redirect the launched server's stdout/stderr to this file")
	cmd.Flags().StringVar(&lf.gracePeriod, "grace-period", "", "how long to keep the server alive with no clients attached (e.g. 30m)")
	cmd.Flags().StringVar(&lf.shutdownSignal, "signal", "", "signal name sent on grace expiry or admin stop (TERM, INT, HUP, QUIT, KILL)")
	cmd.Flags().DurationVar(&lf.startupWindow, "startup-window", 0, "how long to wait for the launched server to stay up before confirming the start (defaults to 1500ms)")
}

func parseEnv(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

func newUseCommand() *cobra.Command {
	var lf launchFlags
	cmd := &cobra.Command{
		Use:   "use <name> [-- cmd args...]",
		Short: "Start-or-attach: register as a client, launching the server if none is running",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cmdArgs := args[1:]

			pid := lf.pid
			if pid == 0 {
				pid = os.Getppid()
			}

			cfg := sharedserver.LaunchConfig{
				Env:            parseEnv(lf.env),
				LogFile:        lf.logFile,
				GracePeriod:    lf.gracePeriod,
				ShutdownSignal: lf.shutdownSignal,
				StartupWindow:  lf.startupWindow,
			}
			if len(cmdArgs) > 0 {
				cfg.Command = cmdArgs[0]
				cfg.Args = cmdArgs[1:]
			}

			result, err := sharedserver.Use(flags.lockDir, name, cfg, pid, lf.metadata)
			if err != nil {
				return withExitCode(sharedserver.ExitCodeForError(err), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	addLaunchFlags(cmd, &lf)
	return cmd
}
