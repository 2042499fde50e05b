package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/intent"
	"github.com/nse-agent/marketagent/internal/pipeline"
)

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the interactive menu (canonical UX)",
		Run:   func(cmd *cobra.Command, args []string) { runMenu(cmd) },
	}
}

// runMenu is the canonical interface: a REPL over stdin that classifies
// each line's intent and dispatches to AnalyzeSymbol or RunScan,
// mirroring the resolve→analyze→verdict control flow a chat shell would
// drive turn by turn.
func runMenu(cmd *cobra.Command) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sink := chatsink.NewConsole(os.Stdout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mctx, closeAll, err := buildContext(ctx, cfg, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeAll()

	fmt.Println("marketagent — type a symbol or a market question. Ctrl-D to exit.")
	state := domain.DialogueState{}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handleLine(ctx, mctx, &state, line)
	}
}

func handleLine(ctx context.Context, mctx *pipeline.MarketContext, state *domain.DialogueState, line string) {
	classified := intent.Classify(line, *state)
	state.LastIntent = classified.Intent

	switch classified.Intent {
	case domain.IntentMarketAnalysis:
		reqCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		outcome, err := pipeline.AnalyzeSymbol(reqCtx, mctx, line, domain.MTFSwing)
		if err != nil {
			mctx.ChatSink.Send(chatsink.TagError, err.Error())
			return
		}
		state.LastObservation = outcome.Verdict.Summary
	case domain.IntentMarketScan:
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := pipeline.RunScan(reqCtx, mctx, line, domain.MTFSwing); err != nil {
			mctx.ChatSink.Send(chatsink.TagError, err.Error())
		}
	case domain.IntentGreeting:
		mctx.ChatSink.Send(chatsink.TagInfo, "ready — ask me to analyze or scan a symbol")
	default:
		log.Debug().Str("intent", string(classified.Intent)).Msg("unhandled intent in menu, ignoring")
		mctx.ChatSink.Send(chatsink.TagWarning, "unrecognized request; try \"analyze INFY\" or \"scan nifty 50\"")
	}
}
