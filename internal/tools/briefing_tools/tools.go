package briefing_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/korima-app/korima/internal/briefing"
	"github.com/korima-app/korima/internal/instrumentation"
	"github.com/korima-app/korima/internal/tools/common"
)

// ToolDailyBriefing is the name of the briefing tool.
const ToolDailyBriefing = "calendar_daily_briefing"

// Briefer produces the daily briefing.
type Briefer interface {
	Daily(ctx context.Context) (*briefing.Briefing, error)
}

// RegisterBriefingTools registers the briefing tool with the MCP server.
func RegisterBriefingTools(s *mcpserver.MCPServer, b Briefer, metrics *instrumentation.Metrics) error {
	if b == nil {
		return fmt.Errorf("briefing service is required")
	}

	dailyBriefingTool := mcp.NewTool(ToolDailyBriefing,
		mcp.WithDescription("Summarize the next upcoming events on the connected Google Calendar"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(dailyBriefingTool, common.InstrumentedToolHandler(ToolDailyBriefing, metrics,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDailyBriefing(ctx, b)
		}))

	return nil
}

func handleDailyBriefing(ctx context.Context, b Briefer) (*mcp.CallToolResult, error) {
	result, err := b.Daily(ctx)
	if err != nil {
		kind := briefing.KindUpstreamUnavailable
		if bErr, ok := briefing.AsError(err); ok {
			kind = bErr.Kind
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", kind.Message(), kind)), nil
	}

	return mcp.NewToolResultText(formatBriefing(result)), nil
}

func formatBriefing(b *briefing.Briefing) string {
	var sb strings.Builder
	sb.WriteString(b.Description)
	for _, line := range b.Events {
		sb.WriteString("\n- ")
		sb.WriteString(line)
	}
	return sb.String()
}
