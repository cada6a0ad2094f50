package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridsight/control-plane/internal/logstore"
)

var (
	logsLimit  int
	logsOutput string
)

var logsCmd = &cobra.Command{
	Use:       "logs {alerts|simulations|memory}",
	Short:     "Print the most recent entries of a bounded audit log",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"alerts", "simulations", "memory"},
	RunE: func(cmd *cobra.Command, args []string) error {
		logs, err := logstore.Open(logstore.Backend(cfg.Data.Backend), cfg.Data.Dir, logstore.Capacities{
			Alerts:      cfg.Data.AlertCapacity,
			Simulations: cfg.Data.SimulationCapacity,
			Memory:      cfg.Data.MemoryCapacity,
		})
		if err != nil {
			return err
		}
		defer logs.Close()

		ctx := cmd.Context()
		return printLog(ctx, cmd.OutOrStdout(), logs, strings.ToLower(args[0]))
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "json", "Output format: json or yaml")
}

func printLog(ctx context.Context, w io.Writer, logs *logstore.Logs, name string) error {
	switch name {
	case "alerts":
		return printRecent(ctx, w, logs.Alerts)
	case "simulations":
		return printRecent(ctx, w, logs.Simulations)
	case "memory":
		return printRecent(ctx, w, logs.Memory)
	default:
		return fmt.Errorf("unknown log %q", name)
	}
}

func printRecent[T any](ctx context.Context, w io.Writer, l logstore.Log[T]) error {
	entries, err := l.Recent(ctx, logsLimit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []T{}
	}
	return render(w, logsOutput, entries)
}
