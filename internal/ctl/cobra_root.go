package ctl

import (
	"os"

	"github.com/spf13/cobra"

	"sentineld/internal/config"
)

// BuildRootCmd constructs the sentinelctl command tree.
func BuildRootCmd() *cobra.Command {
	defaultSocket := config.Default().Daemon.SocketPath
	if v := os.Getenv("SENTINEL_SOCKET"); v != "" {
		defaultSocket = v
	}

	var socketPath string

	root := &cobra.Command{
		Use:           "sentinelctl",
		Short:         "Client for the sentineld GPU arbitration daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", defaultSocket, "Path to the daemon control socket (defaults SENTINEL_SOCKET)")

	runCmd := &cobra.Command{
		Use:   "run <command> [args...]",
		Short: "Acquire GPU priority, run a workload, release on exit",
		Example: "  sentinelctl run python train.py --epochs 50\n" +
			"  sentinelctl run python quantize.py",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(fnRun(socketPath, args))
			return nil
		},
	}
	// Stop cobra from eating the workload's own flags.
	runCmd.Flags().SetInterspersed(false)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show current GPU arbitration state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnStatus(cmd.OutOrStdout(), socketPath)
		},
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live terminal view of arbitration state and remote sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnMonitor(socketPath)
		},
	}

	root.AddCommand(runCmd, statusCmd, monitorCmd)
	return root
}
