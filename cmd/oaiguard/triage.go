package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/oaiguard/internal/logsource"
	"github.com/steveyegge/oaiguard/internal/triage"
	"github.com/steveyegge/oaiguard/internal/types"
)

var lastCmd = &cobra.Command{
	Use:   "last <log>",
	Short: "Triage the most recent error in a log file",
	Long: `Search the last --window lines of the log for the newest error-level
line and triage it with up to --context preceding lines.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := logsource.LastError(args[0], cfg.Window, cfg.ContextLines)
		if err != nil {
			if isNothingFound(err) {
				printNothingFound(os.Stdout, args[0], err)
				return nil
			}
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return a.triageAndPrint(ctx, ev)
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <log>",
	Short: "Triage every error in a log file once",
	Long: `Read the whole log, collect every error-level line with its context and
triage them concurrently with --workers workers. Incidents are printed in log
order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := logsource.ScanFile(args[0], cfg.ContextLines)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			printNothingFound(os.Stdout, args[0], logsource.ErrNoErrorFound)
			return nil
		}
		return withApp(func(ctx context.Context, a *app) error {
			results, err := a.triageAll(ctx, events)
			for _, res := range results {
				if res != nil {
					printIncident(os.Stdout, res.Incident, res.Path)
				}
			}
			fmt.Printf("\n%d error(s) triaged\n", countDone(results))
			return err
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <log>",
	Short: "Follow a log file and triage errors as they appear",
	Long: `Follow the log like tail -F, surviving truncation and rotation. Each new
error-level line is triaged with the lines that preceded it. --tail replays
the last N lines first. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tailN, _ := cmd.Flags().GetInt("tail")
		if !cmd.Flags().Changed("tail") {
			tailN = cfg.TailN
		}
		f, err := logsource.NewFollower(logsource.FollowerConfig{
			Path:       args[0],
			TailN:      tailN,
			MaxContext: cfg.ContextLines,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		return withApp(func(ctx context.Context, a *app) error {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray(fmt.Sprintf("Watching %s (Ctrl+C to stop)", args[0])))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return f.Run(gctx) })
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case ev, ok := <-f.Events():
						if !ok {
							return nil
						}
						if err := a.triageAndPrint(gctx, ev); err != nil {
							logger.Error("triage failed", "error", err)
						}
					}
				}
			})
			return g.Wait()
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <file.json>",
	Short: "Triage the last error event of a JSON event file",
	Long: `Read a JSON object or array of {ts, component, level, message|msg|text}
events and triage the last one whose level is ERROR, CRITICAL or FATAL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evs, err := logsource.LoadJSONEvents(args[0])
		if err == nil {
			var ev types.ErrorEvent
			ev, err = logsource.LastErrorFromJSON(evs, cfg.ContextLines)
			if err == nil {
				return withApp(func(ctx context.Context, a *app) error {
					return a.triageAndPrint(ctx, ev)
				})
			}
		}
		if isNothingFound(err) {
			printNothingFound(os.Stdout, args[0], err)
			return nil
		}
		return err
	},
}

var lineCmd = &cobra.Command{
	Use:   "line <text>",
	Short: "Triage a single log line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev := logsource.NewEvent(args[0], []string{args[0]})
		return withApp(func(ctx context.Context, a *app) error {
			return a.triageAndPrint(ctx, ev)
		})
	},
}

func init() {
	watchCmd.Flags().IntP("tail", "n", 0, "Replay the last N lines before following")
	rootCmd.AddCommand(lastCmd, scanCmd, watchCmd, eventsCmd, lineCmd)
}

// withApp builds the pipeline, runs fn under a signal-aware context and
// tears everything down.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signalContext()
	defer stop()

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (a *app) triageAndPrint(ctx context.Context, ev types.ErrorEvent) error {
	res, err := a.orch.Triage(ctx, ev, a.opts)
	if res != nil && res.Incident != nil {
		printIncident(os.Stdout, res.Incident, res.Path)
	}
	return err
}

// triageAll runs one triage per event, at most cfg.Workers at a time. The
// returned slice is in event order; entries for failed runs are nil.
func (a *app) triageAll(ctx context.Context, events []types.ErrorEvent) ([]*triage.Result, error) {
	results := make([]*triage.Result, len(events))
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, ev := range events {
		g.Go(func() error {
			res, err := a.orch.Triage(gctx, ev, a.opts)
			if err != nil {
				failed.Add(1)
				logger.Error("triage failed", "line", ev.Line, "error", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if n := failed.Load(); n > 0 {
		return results, fmt.Errorf("%d of %d triage runs failed", n, len(events))
	}
	return results, nil
}

func countDone(results []*triage.Result) int {
	n := 0
	for _, r := range results {
		if r != nil {
			n++
		}
	}
	return n
}
