package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sharedserver/sharedserver"
)

// rootFlags carries the persistent flag values every subcommand reads
// after the root command's PersistentPreRunE has loaded configuration.
type rootFlags struct {
	lockDir string
	json    bool
}

var flags rootFlags

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sharedserver",
		Short:         "sharedserver coordinates refcounted, shared long-lived server processes across unrelated clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sharedserver.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lockdir") && cfg.LockDir != "" {
				flags.lockDir = cfg.LockDir
			}
			sharedserver.SetLogger(sharedserver.NewLogger())
			return nil
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&flags.lockDir, "lockdir", sharedserver.LockDir(), "lock directory root (default $XDG_RUNTIME_DIR/sharedserver or /tmp/sharedserver)")
	persistent.BoolVar(&flags.json, "json", false, "emit machine-readable JSON output where supported")
	_ = viper.BindPFlag("lockdir", persistent.Lookup("lockdir"))

	cmd.AddCommand(
		newCheckCommand(),
		newInfoCommand(),
		newListCommand(),
		newUseCommand(),
		newUnuseCommand(),
		newAdminCommand(),
		newWatchCommand(),
		newCompletionCommand(cmd),
	)
	return cmd
}
