package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mariabench",
		Short: "ANN benchmark driver for MariaDB vector search",
		Long: `mariabench manages a local MariaDB server process, loads a vector dataset
into a vector-indexed table and measures recall and latency across a sweep of
search widths.

The server location is taken from MARIADB_ROOT_DIR and MARIADB_DB_WORKSPACE;
PERF=yes or FLAMEGRAPH=yes attaches a profiler to the server for the duration
of each benchmark phase.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDatagenCmd())
	return cmd
}
