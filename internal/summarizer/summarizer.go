// Package summarizer defines the external LLM collaborator the execution
// engine calls to produce analysis and knowledge-base text. The engine
// treats both operations as "given inputs, produce a text blob" and never
// inspects prompt construction itself (spec.md §1, §6).
package summarizer

import "context"

// Summarizer is the request/response abstraction the Execution Engine
// depends on. Both operations accept a caller-supplied conversation id so an
// implementation can trace or group related requests.
type Summarizer interface {
	// AnalyzeFile produces the analysis body for a single source file.
	AnalyzeFile(ctx context.Context, conversationID, filePath, content string) (string, error)
	// SummarizeDirectory produces a directory's knowledge-base body from its
	// children's analyses and its subdirectories' knowledge-base bodies.
	SummarizeDirectory(ctx context.Context, conversationID, dirPath string, childAnalyses, childKBs []string) (string, error)
}
