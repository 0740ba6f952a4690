package briefing_tools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korima-app/korima/internal/briefing"
)

type fakeBriefer struct {
	result *briefing.Briefing
	err    error
	calls  int
}

func (f *fakeBriefer) Daily(context.Context) (*briefing.Briefing, error) {
	f.calls++
	return f.result, f.err
}

func callTool(t *testing.T, b Briefer) *mcp.CallToolResult {
	t.Helper()
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterBriefingTools(s, b, nil))

	tool := s.ListTools()[ToolDailyBriefing]
	require.NotNil(t, tool)

	result, err := tool.Handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestRegisterBriefingTools_RequiresService(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0")
	assert.Error(t, RegisterBriefingTools(s, nil, nil))
}

func TestDailyBriefingTool_Events(t *testing.T) {
	b := &fakeBriefer{result: &briefing.Briefing{
		Description: briefing.DescriptionUpcoming,
		Events: []string{
			"Event: Standup at 2026-10-17T09:00:00Z",
			"Event: Lunch at 2026-10-17T12:30:00Z",
		},
	}}

	result := callTool(t, b)

	assert.False(t, result.IsError)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t,
		"Your upcoming events are:\n- Event: Standup at 2026-10-17T09:00:00Z\n- Event: Lunch at 2026-10-17T12:30:00Z",
		resultText(t, result))
}

func TestDailyBriefingTool_NoEvents(t *testing.T) {
	result := callTool(t, &fakeBriefer{result: &briefing.Briefing{Description: briefing.DescriptionNoEvents}})

	assert.False(t, result.IsError)
	assert.Equal(t, briefing.DescriptionNoEvents, resultText(t, result))
}

func TestDailyBriefingTool_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unauthenticated",
			err:  &briefing.Error{Kind: briefing.KindUnauthenticated},
			want: "User not authenticated. Please log in. (unauthenticated)",
		},
		{
			name: "upstream rejected",
			err:  &briefing.Error{Kind: briefing.KindUpstreamRejected, Err: errors.New("403")},
			want: "Could not retrieve calendar events. (upstream_rejected)",
		},
		{
			name: "untyped error",
			err:  errors.New("boom"),
			want: "Could not retrieve calendar events. (upstream_unavailable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, &fakeBriefer{err: tt.err})

			assert.True(t, result.IsError)
			assert.Equal(t, tt.want, resultText(t, result))
		})
	}
}
