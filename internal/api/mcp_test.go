package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docquery/docquery/internal/answer"
)

type mockSearcher struct {
	chunks   []string
	err      error
	gotLimit int
}

func (m *mockSearcher) SearchNearest(_ context.Context, _ string, limit int) ([]string, error) {
	m.gotLimit = limit
	return m.chunks, m.err
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_Ask(t *testing.T) {
	deps := MCPDeps{
		Query: &mockQuery{result: answer.Result{Answer: "Paris", Sources: []map[string]any{}}},
	}
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "What is the capital of France?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var res answer.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if res.Answer != "Paris" {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestMCPTool_Ask_MissingQuestion(t *testing.T) {
	handler := mcpAsk(MCPDeps{Query: &mockQuery{}})

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing question")
	}
}

func TestMCPTool_Search(t *testing.T) {
	search := &mockSearcher{chunks: []string{"first", "second"}}
	handler := mcpSearch(MCPDeps{Search: search})

	result, err := handler(context.Background(), makeCallToolRequest("search", map[string]interface{}{
		"query": "capitals",
		"limit": 2,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var chunks []string
	if err := json.Unmarshal([]byte(toolText(t, result)), &chunks); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "first" {
		t.Errorf("chunks = %v", chunks)
	}
	if search.gotLimit != 2 {
		t.Errorf("limit = %d, want 2", search.gotLimit)
	}
}

func TestMCPTool_Search_EmptyResult(t *testing.T) {
	handler := mcpSearch(MCPDeps{Search: &mockSearcher{}})

	result, err := handler(context.Background(), makeCallToolRequest("search", map[string]interface{}{
		"query": "nothing matches",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolText(t, result) != "[]" {
		t.Errorf("text = %q, want empty array", toolText(t, result))
	}
}

func TestMCPTool_Search_Failure(t *testing.T) {
	handler := mcpSearch(MCPDeps{Search: &mockSearcher{err: errors.New("store unreachable")}})

	result, err := handler(context.Background(), makeCallToolRequest("search", map[string]interface{}{
		"query": "anything",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when search fails")
	}
}

func TestMCPTool_Search_LimitClamped(t *testing.T) {
	search := &mockSearcher{chunks: []string{"x"}}
	handler := mcpSearch(MCPDeps{Search: search})

	if _, err := handler(context.Background(), makeCallToolRequest("search", map[string]interface{}{
		"query": "q",
		"limit": 500,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.gotLimit != 50 {
		t.Errorf("limit = %d, want clamp to 50", search.gotLimit)
	}
}
