package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/httpapi"
	"github.com/nse-agent/marketagent/internal/pipeline"
)

// printProgress subscribes to the context's progress bus and prints one
// stderr line per timeframe/stage event until the returned func is
// called, so long-running analyze/scan runs give feedback even when the
// chat sink is quiet (scan) or the run takes multiple timeframe round
// trips (analyze).
func printProgress(mctx *pipeline.MarketContext) func() {
	events := mctx.Progress.Subscribe(32)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				switch {
				case e.Message != "":
					fmt.Fprintf(os.Stderr, "  [%s] %s %s: %s\n", e.Stage, e.Symbol, e.Timeframe, e.Message)
				case e.Done:
					fmt.Fprintf(os.Stderr, "  [%s] %s %s done\n", e.Stage, e.Symbol, e.Timeframe)
				default:
					fmt.Fprintf(os.Stderr, "  [%s] %s %s...\n", e.Stage, e.Symbol, e.Timeframe)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func mtfModeFlag(cmd *cobra.Command) domain.MTFMode {
	mode, _ := cmd.Flags().GetString("mode")
	switch mode {
	case "intraday":
		return domain.MTFIntraday
	case "positional":
		return domain.MTFPositional
	default:
		return domain.MTFSwing
	}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol or free text>",
		Short: "Run one single-symbol analysis (C1-C9) and print the verdict",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			mctx, closeAll, err := buildContext(ctx, cfg, chatsink.NewConsole(os.Stdout))
			if err != nil {
				return err
			}
			defer closeAll()

			stopProgress := printProgress(mctx)
			defer stopProgress()

			text := args[0]
			for _, a := range args[1:] {
				text += " " + a
			}

			outcome, err := pipeline.AnalyzeSymbol(ctx, mctx, text, mtfModeFlag(cmd))
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			fmt.Printf("\n%s — %s (%s confidence)\n%s\n", outcome.Symbol, outcome.Verdict.Label, outcome.Verdict.Confidence, outcome.Verdict.Summary)
			return nil
		},
	}
	cmd.Flags().String("mode", "swing", "timeframe set: swing|intraday|positional")
	return cmd
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <scope>",
		Short: "Run the scanner (C11) over a named group or comma-separated symbol list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			mctx, closeAll, err := buildContext(ctx, cfg, chatsink.Null{})
			if err != nil {
				return err
			}
			defer closeAll()

			stopProgress := printProgress(mctx)
			defer stopProgress()

			result, err := pipeline.RunScan(ctx, mctx, args[0], mtfModeFlag(cmd))
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			fmt.Printf("scanned %d, %d signals, %d skipped\n", result.Scanned, len(result.Signals), len(result.Skipped))
			for i, sig := range result.Signals {
				fmt.Printf("%2d. %-10s %-12s %s\n", i+1, sig.Symbol, sig.Verdict.Label, sig.Verdict.Summary)
			}
			for _, skip := range result.Skipped {
				log.Debug().Str("symbol", skip.Symbol).Str("reason", skip.Reason).Msg("scan skip")
			}
			return nil
		},
	}
	cmd.Flags().String("mode", "swing", "timeframe set: swing|intraday|positional")
	return cmd
}

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Start the read-only debug HTTP surface (/healthz, /gates/recent, /analyses/{symbol})",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			mctx, closeAll, err := buildContext(ctx, cfg, chatsink.Null{})
			if err != nil {
				return err
			}
			defer closeAll()

			port, _ := cmd.Flags().GetInt("port")
			httpCfg := httpapi.DefaultConfig()
			if port != 0 {
				httpCfg.Port = port
			}

			srv, err := httpapi.New(httpCfg, mctx.AnalysisStore, mctx.GateLog, mctx.Metrics, log.Logger)
			if err != nil {
				return fmt.Errorf("start debug http surface: %w", err)
			}
			log.Info().Int("port", httpCfg.Port).Msg("debug http surface listening")
			return srv.Start()
		},
	}
	cmd.Flags().Int("port", 8090, "bind port")
	return cmd
}

func newGatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gates <symbol>",
		Short: "Print the recent execution-gate evaluation history for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			mctx, closeAll, err := buildContext(ctx, cfg, chatsink.Null{})
			if err != nil {
				return err
			}
			defer closeAll()

			if mctx.GateLog == nil {
				return fmt.Errorf("gate log not configured: set store.dsn in %s", "config.yaml")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			recs, err := mctx.GateLog.Recent(ctx, args[0], limit)
			if err != nil {
				return fmt.Errorf("gates: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		},
	}
	cmd.Flags().Int("limit", 20, "max records to return")
	return cmd
}
