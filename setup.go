package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"homestyle_sync/internal/app"
	"homestyle_sync/internal/notifications"
	"homestyle_sync/internal/processing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const metricsJob = "homestyle_sync"

type operation func(ctx context.Context, r *processing.Runner) (processing.Result, error)

func setupEnvironment() {
	app.SetupEnvironment()
}

// runOperation builds the clients, runs op and always flushes the workbook
// so partial progress is kept. The summary is printed, sent as a
// notification and the metrics are pushed.
func runOperation(cmd *cobra.Command, name string, op operation) error {
	ctx := cmd.Context()

	cfg := app.LoadConfig()
	clients := app.InitializeClients(ctx, cfg)
	defer clients.Close()

	runner := processing.NewRunner(cfg, clients.Workbook, clients.RunnerOptions()...)

	log.Info().Str("operation", name).Msg("Starting operation")
	res, runErr := op(ctx, runner)

	flushErr := clients.Workbook.Flush(ctx)
	if flushErr != nil {
		log.Error().Err(flushErr).Str("operation", name).Msg("Failed to write sheet changes")
		flushErr = fmt.Errorf("flush workbook: %w", flushErr)
	}

	summary := res.Summary
	if runErr != nil {
		summary = "오류: " + runErr.Error()
	}
	printResult(cmd.OutOrStdout(), res, summary)

	clients.Notifier.NotifyRunSummary(ctx, notifications.RunSummary{
		Operation: name,
		Summary:   summary,
		Failed:    res.FailedList,
	})

	if err := clients.Metrics.Push(cfg.PushgatewayURL, metricsJob); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}

	return errors.Join(runErr, flushErr)
}

func printResult(w io.Writer, res processing.Result, summary string) {
	fmt.Fprintln(w, summary)
	if res.Sheet != "" {
		fmt.Fprintf(w, "시트: %s\n", res.Sheet)
	}
	for _, f := range res.FailedList {
		fmt.Fprintf(w, "  ✗ %s\n", f)
	}
}
