package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"reportwiz/internal/domain"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// splitList splits a comma-separated argument, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseFilters decodes a JSON array of filter conditions. Operators may be
// given by name ("GREATER_THAN") or symbol (">").
func parseFilters(raw string) ([]domain.FilterCondition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var filters []domain.FilterCondition
	if err := parseJSON(raw, &filters); err != nil {
		return nil, fmt.Errorf("filters: %w", err)
	}
	for i := range filters {
		if op, ok := domain.ParseOperator(string(filters[i].Operator)); ok {
			filters[i].Operator = op
		}
		if filters[i].Kind == "" {
			filters[i].Kind = domain.KindText
		}
	}
	return filters, nil
}

// parseSort decodes a JSON array of sort specs.
func parseSort(raw string) ([]domain.SortSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var sort []domain.SortSpec
	if err := parseJSON(raw, &sort); err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}
	return sort, nil
}
