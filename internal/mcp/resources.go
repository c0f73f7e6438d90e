package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"reportwiz/internal/domain"
)

const profilesURI = "reportwiz://profiles"

func (s *Server) registerResources() {
	// ── reportwiz://profiles ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		profilesURI,
		"Connection Profiles",
		mcp.WithMIMEType("application/json"),
	), s.handleProfilesResource)

	// ── reportwiz://profile/{profileId}/tables ─────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"reportwiz://profile/{profileId}/tables",
			"Tables of a Connected Profile",
		),
		s.handleProfileTablesResource,
	)

	// ── reportwiz://operators ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"reportwiz://operators",
		"Filter Operators",
		mcp.WithMIMEType("application/json"),
	), s.handleOperatorsResource)
}

func (s *Server) handleProfilesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	profiles, err := s.reports.ListProfiles()
	if err != nil {
		return nil, err
	}
	summaries := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, profileSummary{
			ID: p.ID, Name: p.Name, Vendor: string(p.Vendor), URL: p.ConnectionURL(),
			Connected: s.reports.IsConnected(p.ID),
		})
	}
	return jsonResource(profilesURI, summaries)
}

func (s *Server) handleProfileTablesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	profileID, err := profileIDFromURI(uri)
	if err != nil {
		return nil, err
	}
	tables, err := s.reports.ListTables(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, tables)
}

func (s *Server) handleOperatorsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type operatorView struct {
		Name    domain.Operator `json:"name"`
		SQL     string          `json:"sql"`
		Display string          `json:"display"`
	}
	var out []operatorView
	for _, op := range domain.Operators() {
		info, _ := domain.DescribeOperator(op)
		out = append(out, operatorView{Name: op, SQL: info.SQL, Display: info.Display})
	}
	return jsonResource("reportwiz://operators", out)
}

// profileIDFromURI extracts the id from reportwiz://profile/{id}/tables.
func profileIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "reportwiz://profile/")
	if !ok {
		return "", fmt.Errorf("invalid URI: %s", uri)
	}
	id, ok := strings.CutSuffix(rest, "/tables")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid URI: %s", uri)
	}
	return id, nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
