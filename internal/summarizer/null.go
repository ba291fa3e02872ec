package summarizer

import (
	"context"
	"fmt"
)

// NullSummarizer produces deterministic placeholder text without making any
// network call. Used for preview mode and for tests that must not depend on
// external credentials.
type NullSummarizer struct{}

// AnalyzeFile implements Summarizer.
func (NullSummarizer) AnalyzeFile(_ context.Context, _, filePath, content string) (string, error) {
	return fmt.Sprintf("(no-op analysis for %s, %d bytes)", filePath, len(content)), nil
}

// SummarizeDirectory implements Summarizer.
func (NullSummarizer) SummarizeDirectory(_ context.Context, _, dirPath string, childAnalyses, childKBs []string) (string, error) {
	return fmt.Sprintf("(no-op knowledge base for %s, %d child analyses, %d child knowledge bases)",
		dirPath, len(childAnalyses), len(childKBs)), nil
}
