// Package testutil provides a mock Anthropic Messages API server, adapted
// from the teacher's mock GraphQL server: an httptest.Server that records
// every request and returns a configured canned response, letting callers
// exercise internal/summarizer's Anthropic-backed implementation without a
// real network call.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockAnthropicServer simulates the Anthropic Messages API.
type MockAnthropicServer struct {
	Server *httptest.Server

	mu           sync.RWMutex
	responseText string
	stopReason   string
	err          error
	calls        []AnthropicCall
}

// AnthropicCall records one request for test assertions.
type AnthropicCall struct {
	Model          string
	Prompt         string
	ConversationID string
}

// NewMockAnthropicServer creates a mock server that by default returns a
// fixed response text with stop_reason "end_turn".
func NewMockAnthropicServer() *MockAnthropicServer {
	m := &MockAnthropicServer{
		responseText: "mock analysis",
		stopReason:   "end_turn",
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

// URL returns the test server's URL, suitable for AnthropicConfig.BaseURL.
func (m *MockAnthropicServer) URL() string {
	return m.Server.URL
}

// Close shuts down the test server.
func (m *MockAnthropicServer) Close() {
	m.Server.Close()
}

// SetResponse configures the text and stop reason every subsequent request
// receives.
func (m *MockAnthropicServer) SetResponse(text, stopReason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseText = text
	m.stopReason = stopReason
	m.err = nil
}

// SetError configures the mock to return an API error for every subsequent
// request.
func (m *MockAnthropicServer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns every recorded request, in order.
func (m *MockAnthropicServer) Calls() []AnthropicCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AnthropicCall{}, m.calls...)
}

type messagesRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	Metadata struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

func (m *MockAnthropicServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req messagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var prompt string
	if len(req.Messages) > 0 && len(req.Messages[0].Content) > 0 {
		prompt = req.Messages[0].Content[0].Text
	}

	m.mu.Lock()
	m.calls = append(m.calls, AnthropicCall{
		Model:          req.Model,
		Prompt:         prompt,
		ConversationID: req.Metadata.UserID,
	})
	mockErr := m.err
	text := m.responseText
	stopReason := m.stopReason
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if mockErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    "api_error",
				"message": mockErr.Error(),
			},
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"id":          "msg_mock",
		"type":        "message",
		"role":        "assistant",
		"model":       req.Model,
		"stop_reason": stopReason,
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"usage": map[string]any{
			"input_tokens":  1,
			"output_tokens": 1,
		},
	})
}
