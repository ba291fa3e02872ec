package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jcjorel/kb-indexer/internal/config"
	"github.com/jcjorel/kb-indexer/internal/decision"
	"github.com/jcjorel/kb-indexer/internal/engine"
	"github.com/jcjorel/kb-indexer/internal/summarizer"
)

var previewCmd = &cobra.Command{
	Use:   "preview [source-root]",
	Short: "Build the execution plan and report it without running any task",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().String("output-root", "", "knowledge output directory (default: config output_root)")
	previewCmd.Flags().Bool("full", false, "preview a full rebuild of every file and directory")
	previewCmd.Flags().Bool("full-kb-rebuild", false, "preview a full rebuild of every directory knowledge file")
}

func runPreview(cmd *cobra.Command, args []string) error {
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

	idx := engine.NewIndexer(cfg, &summarizer.NullSummarizer{}, newLogger(cmd))
	previews, err := idx.Preview(mode)
	if err != nil {
		return fmt.Errorf("building preview: %w", err)
	}

	for i, p := range previews {
		fmt.Printf("tree %d:\n", i+1)
		for taskType, count := range p.Exec.TaskCountByType {
			fmt.Printf("  %-28s %s\n", taskType, humanize.Comma(int64(count)))
		}
		fmt.Printf("  llm tasks:          %s\n", humanize.Comma(int64(p.Exec.LLMTaskCount)))
		fmt.Printf("  max parallel width: %s\n", humanize.Comma(int64(p.Exec.MaxParallelWidth)))
		fmt.Printf("  rebuild/skip/error: %s / %s / %s\n",
			humanize.Comma(int64(p.Decisions.Rebuilt)), humanize.Comma(int64(p.Decisions.Skipped)), humanize.Comma(int64(p.Decisions.Errored)))
		fmt.Printf("  files to rebuild:   %s\n", humanize.Comma(int64(len(p.FilesToRebuild))))
		fmt.Printf("  files to delete:    %s\n", humanize.Comma(int64(len(p.FilesToDelete))))
		fmt.Printf("  dirs to delete:     %s\n", humanize.Comma(int64(len(p.DirectoriesToDelete))))
	}
	return nil
}
