package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsight/control-plane/internal/metricsource"
	"github.com/gridsight/control-plane/pkg/models"
	"github.com/gridsight/control-plane/pkg/server"
)

var (
	askPlant    int
	askQuestion string
	askOutput   string
	askMetrics  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Run one question through the decision pipeline and print the result",
	Example: `  gridsight ask "give me a status report"
  gridsight ask --plant 3 --question "What if drift becomes HIGH?" -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question := askQuestion
		if question == "" {
			question = strings.Join(args, " ")
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return errors.New("question is required")
		}

		var override *models.MetricsSnapshot
		if askMetrics != "" {
			data, err := os.ReadFile(askMetrics)
			if err != nil {
				return fmt.Errorf("read metrics: %w", err)
			}
			snap, err := metricsource.DecodeReport(data)
			if err != nil {
				return err
			}
			override = &snap
		}

		ctx := cmd.Context()
		srv, err := server.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		decision := srv.Orchestrator.Run(ctx, askPlant, question, override)
		return render(cmd.OutOrStdout(), askOutput, decision)
	},
}

func init() {
	askCmd.Flags().IntVar(&askPlant, "plant", 1, "Plant identifier recorded with the run")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "Question to ask (alternative to positional words)")
	askCmd.Flags().StringVarP(&askOutput, "output", "o", "json", "Output format: json or yaml")
	askCmd.Flags().StringVar(&askMetrics, "metrics", "", "Evaluation report to use instead of the configured one")
}
