// Command marketagent is the dispatcher: it builds every collaborator
// once (chart client, LLM/VLM clients, symbol memory, analysis store,
// gate log, metrics registry), wires them into one MarketContext, and
// either opens the interactive menu (TTY) or runs one automation
// subcommand. Menu is canon; subcommands are automation shims.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nse-agent/marketagent/internal/config"
	"github.com/nse-agent/marketagent/internal/log"
)

const (
	appName = "marketagent"
	version = "v0.1.0"
)

func main() {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	zlog.Logger = log.Init(interactive, zerolog.InfoLevel)

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "MENU IS CANON — run with no arguments in a terminal to open it.",
		Version: version,
		Long: `marketagent is a read-only NSE equities analysis agent: symbol
resolution, multi-timeframe technical reconciliation, scenario
probability, and execution-gate evaluation, emitted to a chat sink —
never an order, never a chart click.

THE INTERACTIVE MENU IS THE PRIMARY INTERFACE.
Run 'marketagent' with no arguments in a terminal for the menu.
Subcommands (analyze, scan, health, gates) are automation shims.`,
		Run: runDefaultEntry,
	}
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to config.yaml")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newGatesCmd())
	rootCmd.AddCommand(newMenuCmd())

	if err := rootCmd.Execute(); err != nil {
		zlog.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runDefaultEntry(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "interactive menu requires a TTY terminal.")
		fmt.Fprintln(os.Stderr, "use a subcommand for non-interactive automation:")
		fmt.Fprintln(os.Stderr, "  marketagent analyze INFY --mode swing")
		fmt.Fprintln(os.Stderr, "  marketagent scan \"nifty 50\" --mode intraday")
		fmt.Fprintln(os.Stderr, "  marketagent --help")
		os.Exit(2)
	}
	runMenu(cmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
