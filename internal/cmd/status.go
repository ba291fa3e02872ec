package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jcjorel/kb-indexer/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last completed run's status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("output-root", "", "knowledge output directory (default: config output_root)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if out, _ := cmd.Flags().GetString("output-root"); out != "" {
		cfg.OutputRoot = out
	}
	if cfg.OutputRoot == "" {
		return fmt.Errorf("output root required: pass --output-root or set output_root in config")
	}

	ps, err := readStatusFile(cfg.OutputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no run has completed yet")
			return nil
		}
		return fmt.Errorf("reading status: %w", err)
	}

	fmt.Printf("phase:      %s\n", ps.Phase)
	fmt.Printf("source:     %s\n", ps.SourceRoot)
	fmt.Printf("outcome:    %s\n", ps.Outcome)
	fmt.Printf("tasks:      %s total, %s completed, %s failed\n",
		humanize.Comma(int64(ps.TasksTotal)), humanize.Comma(int64(ps.Completed)), humanize.Comma(int64(ps.Failed)))
	fmt.Printf("llm calls:  %s\n", humanize.Comma(int64(ps.LLMCallCount)))
	if !ps.FinishedAt.IsZero() {
		fmt.Printf("finished:   %s\n", humanize.Time(ps.FinishedAt))
	}
	if ps.LastError != "" {
		fmt.Printf("last error: %s\n", ps.LastError)
	}
	return nil
}
