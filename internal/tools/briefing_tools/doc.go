// Package briefing_tools exposes the daily briefing as an MCP tool.
//
// The calendar_daily_briefing tool runs the same operation as the
// /api/daily-briefing endpoint and returns the briefing as text. Failures are
// returned as tool errors that name the error kind, so an assistant can tell a
// missing login apart from an unavailable Calendar API.
package briefing_tools
