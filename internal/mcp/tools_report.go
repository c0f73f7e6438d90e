package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reportwiz/internal/domain"
	"reportwiz/internal/query"
)

func (s *Server) registerProfileTools() {
	s.mcp.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List saved connection profiles (passwords are never returned in plain text)"),
	), s.handleListProfiles)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List connection templates that can prefill a new profile"),
	), s.handleListTemplates)

	s.mcp.AddTool(mcp.NewTool("connect_profile",
		mcp.WithDescription("Open a pooled connection for a saved profile"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
	), s.handleConnectProfile)

	s.mcp.AddTool(mcp.NewTool("disconnect_profile",
		mcp.WithDescription("Close the pooled connection of a profile"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
	), s.handleDisconnectProfile)
}

func (s *Server) registerCatalogTools() {
	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List user tables of a connected profile, sorted, system tables excluded"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("list_columns",
		mcp.WithDescription("Describe the columns of a table: native type, size, nullability, keys and logical kind"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
	), s.handleListColumns)

	s.mcp.AddTool(mcp.NewTool("record_count",
		mcp.WithDescription("Count every row of a table"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
	), s.handleRecordCount)

	s.mcp.AddTool(mcp.NewTool("sample_rows",
		mcp.WithDescription("Preview the first rows of a table in the vendor's limit syntax"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
		mcp.WithNumber("rows", mcp.Description("Rows to return (default 10, capped by the page size)")),
	), s.handleSampleRows)
}

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("build_query",
		mcp.WithDescription("Compile a SELECT in the profile vendor's dialect without running it"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID (selects the dialect)"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
		mcp.WithString("columns", mcp.Description("Comma-separated columns (default *)")),
		mcp.WithString("filters", mcp.Description(`JSON array of {"column","kind","operator","value","connector"}`)),
		mcp.WithString("sort", mcp.Description(`JSON array of {"column","direction","priority"}`)),
		mcp.WithString("groupBy", mcp.Description("Comma-separated GROUP BY columns")),
		mcp.WithNumber("limit", mcp.Description("Row limit in the vendor's syntax")),
		mcp.WithNumber("offset", mcp.Description("Window offset; used with pageSize")),
		mcp.WithNumber("pageSize", mcp.Description("Window size; takes precedence over limit")),
	), s.handleBuildQuery)

	s.mcp.AddTool(mcp.NewTool("build_count_query",
		mcp.WithDescription("Compile the COUNT(*) query sharing the WHERE clause of build_query"),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
		mcp.WithString("filters", mcp.Description(`JSON array of {"column","kind","operator","value","connector"}`)),
	), s.handleBuildCountQuery)

	s.mcp.AddTool(mcp.NewTool("fetch_page",
		mcp.WithDescription("Count matching rows, then return one bounded page. Large results are refused with the total so the filter can be narrowed."),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
		mcp.WithString("columns", mcp.Description("Comma-separated columns (default *)")),
		mcp.WithString("filters", mcp.Description(`JSON array of {"column","kind","operator","value","connector"}`)),
		mcp.WithString("sort", mcp.Description(`JSON array of {"column","direction","priority"}`)),
		mcp.WithNumber("pageNumber", mcp.Description("1-based page number (default 1)")),
		mcp.WithNumber("pageSize", mcp.Description("Rows per page (capped by configuration)")),
		mcp.WithBoolean("force", mcp.Description("Load past the refusal threshold. 🛑 May require user approval.")),
	), s.handleFetchPage)

	s.mcp.AddTool(mcp.NewTool("recent_fetches",
		mcp.WithDescription("List the most recent fetch outcomes of a profile"),
		mcp.WithString("profileId", mcp.Description("Connection profile ID"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum records (default 50)")),
	), s.handleRecentFetches)
}

// ── Profiles ───────────────────────────────────────────────

// profileSummary hides the password token.
type profileSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Vendor    string `json:"vendor"`
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
}

func (s *Server) handleListProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profiles, err := s.reports.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileSummary{
			ID:        p.ID,
			Name:      p.Name,
			Vendor:    string(p.Vendor),
			URL:       p.ConnectionURL(),
			Connected: s.reports.IsConnected(p.ID),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.reports.Templates())
}

func (s *Server) handleConnectProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	if id == "" {
		return nil, fmt.Errorf("profileId is required")
	}
	if err := s.reports.Connect(ctx, id); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return textResult(fmt.Sprintf("Connected %s", id)), nil
}

func (s *Server) handleDisconnectProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	if id == "" {
		return nil, fmt.Errorf("profileId is required")
	}
	if err := s.reports.Disconnect(id); err != nil {
		return nil, fmt.Errorf("disconnect: %w", err)
	}
	return textResult(fmt.Sprintf("Disconnected %s", id)), nil
}

// ── Catalog ────────────────────────────────────────────────

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	if id == "" {
		return nil, fmt.Errorf("profileId is required")
	}
	tables, err := s.reports.ListTables(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return jsonResult(tables)
}

// columnView adds the derived fields to a column descriptor.
type columnView struct {
	domain.ColumnDescriptor
	Kind        domain.LogicalKind `json:"kind"`
	DisplayName string             `json:"displayName"`
}

func (s *Server) handleListColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	table := req.GetString("table", "")
	if id == "" || table == "" {
		return nil, fmt.Errorf("profileId and table are required")
	}
	cols, err := s.reports.ListColumns(ctx, id, table)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	out := make([]columnView, 0, len(cols))
	for _, c := range cols {
		out = append(out, columnView{ColumnDescriptor: c, Kind: c.Kind(), DisplayName: c.DisplayName()})
	}
	return jsonResult(out)
}

func (s *Server) handleRecordCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	table := req.GetString("table", "")
	if id == "" || table == "" {
		return nil, fmt.Errorf("profileId and table are required")
	}
	n, err := s.reports.RecordCount(ctx, id, table)
	if err != nil {
		return nil, fmt.Errorf("record count: %w", err)
	}
	return textResult(fmt.Sprintf("%d", n)), nil
}

func (s *Server) handleSampleRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	table := req.GetString("table", "")
	if id == "" || table == "" {
		return nil, fmt.Errorf("profileId and table are required")
	}
	cols, rows, err := s.reports.SampleRows(ctx, id, table, req.GetInt("rows", 10))
	if err != nil {
		return nil, fmt.Errorf("sample rows: %w", err)
	}
	return jsonResult(map[string]any{"columns": cols, "rows": rows})
}

// ── Queries ────────────────────────────────────────────────

func (s *Server) handleBuildQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	d, err := descriptorFromArgs(req)
	if err != nil {
		return nil, err
	}
	if id == "" || d.Table == "" {
		return nil, fmt.Errorf("profileId and table are required")
	}
	d.GroupBy = splitList(req.GetString("groupBy", ""))
	d.Limit = req.GetInt("limit", 0)
	if size := req.GetInt("pageSize", 0); size > 0 {
		d.Page = &query.Window{Offset: req.GetInt("offset", 0), Size: size}
	}

	sqlText, err := s.reports.BuildQuery(id, d)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return textResult(sqlText), nil
}

func (s *Server) handleBuildCountQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := descriptorFromArgs(req)
	if err != nil {
		return nil, err
	}
	if d.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	return textResult(s.reports.BuildCountQuery(d)), nil
}

func (s *Server) handleFetchPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	d, err := descriptorFromArgs(req)
	if err != nil {
		return nil, err
	}
	if id == "" || d.Table == "" {
		return nil, fmt.Errorf("profileId and table are required")
	}

	fr := domain.FetchRequest{
		Table:   d.Table,
		Columns: d.Columns,
		Filters: d.Filters,
		Sort:    d.Sort,
		Page: domain.PageRequest{
			PageNumber: req.GetInt("pageNumber", 1),
			PageSize:   req.GetInt("pageSize", 0),
		},
		Force: req.GetBool("force", false),
	}

	if fr.Force && s.confirmForce {
		err := s.approval.Await(ForceRequest{
			ProfileID: id,
			Table:     fr.Table,
			Summary:   fmt.Sprintf("Force-load %s on profile %s past the row limit", fr.Table, id),
		})
		if err != nil {
			return textResult(fmt.Sprintf("Forced load not approved: %v", err)), nil
		}
	}

	return jsonResult(s.reports.FetchPage(ctx, id, fr))
}

func (s *Server) handleRecentFetches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("profileId", "")
	if id == "" {
		return nil, fmt.Errorf("profileId is required")
	}
	records, err := s.reports.RecentFetches(id, req.GetInt("limit", 50))
	if err != nil {
		return nil, fmt.Errorf("recent fetches: %w", err)
	}
	return jsonResult(records)
}

// descriptorFromArgs reads the arguments shared by the query tools.
func descriptorFromArgs(req mcp.CallToolRequest) (query.Descriptor, error) {
	filters, err := parseFilters(req.GetString("filters", ""))
	if err != nil {
		return query.Descriptor{}, err
	}
	sort, err := parseSort(req.GetString("sort", ""))
	if err != nil {
		return query.Descriptor{}, err
	}
	return query.Descriptor{
		Table:   req.GetString("table", ""),
		Columns: splitList(req.GetString("columns", "")),
		Filters: filters,
		Sort:    sort,
	}, nil
}
