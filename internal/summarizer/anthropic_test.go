package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jcjorel/kb-indexer/internal/testutil"
)

func TestAnalyzeFileReturnsResponseText(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockAnthropicServer()
	defer mock.Close()
	mock.SetResponse("this file defines the widget factory", "end_turn")

	cfg := DefaultAnthropicConfig("test-key")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 1000 // don't let the limiter slow the test down

	s := NewAnthropicSummarizer(cfg)
	analysis, err := s.AnalyzeFile(context.Background(), "conv-1", "/src/widget.go", "package widget")
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	if analysis != "this file defines the widget factory" {
		t.Errorf("AnalyzeFile() = %q", analysis)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want conv-1", calls[0].ConversationID)
	}
	if calls[0].Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("Model = %q", calls[0].Model)
	}
	if !strings.Contains(calls[0].Prompt, "/src/widget.go") {
		t.Errorf("prompt should mention the file path, got %q", calls[0].Prompt)
	}
}

func TestSummarizeDirectoryEmbedsChildren(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockAnthropicServer()
	defer mock.Close()
	mock.SetResponse("directory overview", "end_turn")

	cfg := DefaultAnthropicConfig("test-key")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 1000

	s := NewAnthropicSummarizer(cfg)
	summary, err := s.SummarizeDirectory(context.Background(), "conv-2", "/src",
		[]string{"analysis of a.go"}, []string{"summary of sub/"})
	if err != nil {
		t.Fatalf("SummarizeDirectory() error: %v", err)
	}
	if summary != "directory overview" {
		t.Errorf("SummarizeDirectory() = %q", summary)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Prompt, "analysis of a.go") || !strings.Contains(calls[0].Prompt, "summary of sub/") {
		t.Errorf("prompt should embed both children, got %q", calls[0].Prompt)
	}
}

func TestCompleteReturnsErrorOnTruncation(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockAnthropicServer()
	defer mock.Close()
	mock.SetResponse("cut off mid-sent", "max_tokens")

	cfg := DefaultAnthropicConfig("test-key")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 1000

	s := NewAnthropicSummarizer(cfg)
	_, err := s.AnalyzeFile(context.Background(), "conv-3", "/src/big.go", "package big")
	if err == nil {
		t.Fatal("expected an error for a max_tokens stop reason")
	}
}

func TestCompleteReturnsAPIError(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockAnthropicServer()
	defer mock.Close()
	mock.SetError(errors.New("overloaded"))

	cfg := DefaultAnthropicConfig("test-key")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 1000

	s := NewAnthropicSummarizer(cfg)
	_, err := s.AnalyzeFile(context.Background(), "conv-4", "/src/x.go", "package x")
	if err == nil {
		t.Fatal("expected an error when the API returns a failure")
	}
}
