package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jcjorel/kb-indexer/internal/config"
	"github.com/jcjorel/kb-indexer/internal/decision"
	"github.com/jcjorel/kb-indexer/internal/engine"
	"github.com/jcjorel/kb-indexer/internal/summarizer"
)

var indexCmd = &cobra.Command{
	Use:   "index [source-root]",
	Short: "Run one incremental indexing pass",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().String("output-root", "", "knowledge output directory (default: config output_root)")
	indexCmd.Flags().Bool("full", false, "force a full rebuild of every file and directory")
	indexCmd.Flags().Bool("full-kb-rebuild", false, "force a full rebuild of every directory knowledge file, reusing fresh file analyses")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(args) > 0 {
		cfg.SourceRoot = args[0]
	}
	if out, _ := cmd.Flags().GetString("output-root"); out != "" {
		cfg.OutputRoot = out
	}
	if cfg.SourceRoot == "" {
		return fmt.Errorf("source root required: pass it as an argument or set source_root in config")
	}
	if cfg.OutputRoot == "" {
		return fmt.Errorf("output root required: pass --output-root or set output_root in config")
	}

	mode := decision.ModeIncremental
	full, _ := cmd.Flags().GetBool("full")
	fullKB, _ := cmd.Flags().GetBool("full-kb-rebuild")
	switch {
	case full:
		mode = decision.ModeFull
	case fullKB:
		mode = decision.ModeFullKBRebuild
	}

	var summ summarizer.Summarizer
	if cfg.AnthropicAPIKey == "" {
		fmt.Println("no Anthropic API key configured, using a no-op summarizer")
		summ = &summarizer.NullSummarizer{}
	} else {
		summ = summarizer.NewAnthropicSummarizer(summarizer.DefaultAnthropicConfig(cfg.AnthropicAPIKey))
	}

	idx := engine.NewIndexer(cfg, summ, newLogger(cmd))
	res, err := idx.Run(context.Background(), mode)
	if err != nil {
		writeStatusFile(cfg.OutputRoot, idx.Status(), res)
		return fmt.Errorf("running index: %w", err)
	}
	if werr := writeStatusFile(cfg.OutputRoot, idx.Status(), res); werr != nil {
		fmt.Printf("warning: failed to persist status file: %v\n", werr)
	}

	fmt.Printf("outcome: %s\n", res.Outcome)
	fmt.Printf("completed: %s, failed: %s, llm calls: %s, duration: %s\n",
		humanize.Comma(int64(res.CompletedCount)),
		humanize.Comma(int64(res.FailedCount)),
		humanize.Comma(int64(res.LLMCallCount)),
		res.Duration.Round(time.Millisecond))
	for taskID, errMsg := range res.FailedTasks {
		fmt.Printf("  FAILED %s: %s\n", taskID, errMsg)
	}
	if res.Outcome == "failed" {
		return fmt.Errorf("indexing run failed: success rate below 0.5")
	}
	return nil
}
