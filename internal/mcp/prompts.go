package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_report",
		mcp.WithPromptDescription("Guide through building a filtered report over one table"),
		mcp.WithArgument("profileId",
			mcp.ArgumentDescription("Connection profile to report on"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the report should show"),
			mcp.RequiredArgument(),
		),
	), s.handleBuildReportPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("narrow_filter",
		mcp.WithPromptDescription("Help narrow a filter after fetch_page refused a large result"),
		mcp.WithArgument("table",
			mcp.ArgumentDescription("Table that was fetched"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("total",
			mcp.ArgumentDescription("Total matching rows reported by the refusal"),
			mcp.RequiredArgument(),
		),
	), s.handleNarrowFilterPrompt)
}

func (s *Server) handleBuildReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	profileID := req.Params.Arguments["profileId"]
	goal := req.Params.Arguments["goal"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a report: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a report on profile %q. Goal: %s

Steps:
1. connect_profile with profileId %q (skip if list_profiles shows it connected).
2. list_tables, pick the table that fits the goal.
3. list_columns on it; use each column's "kind" for filter kinds.
4. build_query to preview the SQL, then fetch_page.
5. If fetch_page returns state "refused", narrow the filters instead of forcing.`, profileID, goal, profileID),
				},
			},
		},
	}, nil
}

func (s *Server) handleNarrowFilterPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	table := req.Params.Arguments["table"]
	total := req.Params.Arguments["total"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Narrow the filter on %s", table),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`fetch_page refused %s: %s rows match.

Suggest additional filters that cut the result below the limit. Prefer:
- a date range with BETWEEN on a datetime column
- an equality on a low-cardinality text column
- IN on a known set of ids

Verify each candidate with build_count_query before fetching again.`, table, total),
				},
			},
		},
	}, nil
}
