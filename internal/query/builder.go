// Package query compiles report descriptors into vendor-specific SQL text.
//
// Values are embedded as literals with single quotes doubled. There is no
// parameter binding, so the output must not be fed adversarial input.
package query

import (
	"log"
	"sort"
	"strconv"
	"strings"

	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
)

// Window is an explicit offset/size slice of the result.
type Window struct {
	Offset int `json:"offset"`
	Size   int `json:"size"`
}

// Descriptor is everything needed to compile one SELECT. It is a plain
// value; Build never mutates it.
type Descriptor struct {
	Table   string                   `json:"table"`
	Columns []string                 `json:"columns,omitempty"`
	Filters []domain.FilterCondition `json:"filters,omitempty"`
	Sort    []domain.SortSpec        `json:"sort,omitempty"`
	GroupBy []string                 `json:"groupBy,omitempty"`
	Limit   int                      `json:"limit,omitempty"`
	Page    *Window                  `json:"page,omitempty"`
}

// Build renders SELECT, FROM, WHERE, GROUP BY, ORDER BY and then the
// vendor's limiting syntax. A Page window takes precedence over Limit.
//
// Oracle limits are merged into WHERE as ROWNUM <= n. ROWNUM is assigned
// before ORDER BY runs, so with a sort this returns the first n rows read,
// sorted, not the first n rows of the sorted result.
func Build(d Descriptor, p dialect.Profile) string {
	selectList := "*"
	if cols := nonBlank(d.Columns); len(cols) > 0 {
		selectList = strings.Join(cols, ", ")
	}
	where, hasOr := whereClause(d.Filters)
	orderBy := orderByClause(d.Sort)

	var head, tail string
	switch {
	case d.Page != nil && d.Page.Size > 0:
		offset := max(d.Page.Offset, 0)
		switch p.PagingStyle {
		case dialect.OffsetFetch:
			if orderBy == "" && p.Vendor == dialect.VendorSQLServer {
				orderBy = "(SELECT NULL)"
			}
			tail = " OFFSET " + strconv.Itoa(offset) + " ROWS FETCH NEXT " + strconv.Itoa(d.Page.Size) + " ROWS ONLY"
		default:
			tail = " LIMIT " + strconv.Itoa(d.Page.Size)
			if offset > 0 {
				tail += " OFFSET " + strconv.Itoa(offset)
			}
		}
	case d.Limit > 0:
		n := strconv.Itoa(d.Limit)
		switch p.LimitStyle {
		case dialect.TopClause:
			head = "TOP " + n + " "
		case dialect.RownumPredicate:
			if where == "" {
				where = "ROWNUM <= " + n
			} else {
				if hasOr {
					where = "(" + where + ")"
				}
				where += " AND ROWNUM <= " + n
			}
		default:
			tail = " LIMIT " + n
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(head)
	sb.WriteString(selectList)
	sb.WriteString(" FROM ")
	sb.WriteString(d.Table)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if groups := nonBlank(d.GroupBy); len(groups) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groups, ", "))
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	sb.WriteString(tail)
	return sb.String()
}

// BuildCount renders SELECT COUNT(*) with the same WHERE clause as Build and
// no grouping, ordering or limiting.
func BuildCount(d Descriptor) string {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(d.Table)
	if where, _ := whereClause(d.Filters); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String()
}

// SampleQuery returns the first n rows of table in the vendor's syntax.
func SampleQuery(table string, n int, p dialect.Profile) string {
	return Build(Descriptor{Table: table, Limit: n}, p)
}

// WhereClause renders the filter list without the WHERE keyword.
func WhereClause(filters []domain.FilterCondition) string {
	where, _ := whereClause(filters)
	return where
}

func whereClause(filters []domain.FilterCondition) (string, bool) {
	var sb strings.Builder
	hasOr := false
	n := 0
	for i, f := range filters {
		if !f.IsValid() {
			log.Printf("[QUERY] skipping invalid filter #%d on %q", i, f.Column)
			continue
		}
		if n > 0 {
			conn := f.Connector.SQL()
			if conn == "OR" {
				hasOr = true
			}
			sb.WriteString(" ")
			sb.WriteString(conn)
			sb.WriteString(" ")
		}
		sb.WriteString(RenderCondition(f))
		n++
	}
	return sb.String(), hasOr
}

// RenderCondition renders a single predicate. Unknown operators and
// malformed BETWEEN values fall back to the equals rendering.
func RenderCondition(f domain.FilterCondition) string {
	c, v := f.Column, f.Value
	numeric := f.Kind == domain.KindNumeric

	switch f.Operator {
	case domain.OpEquals:
		return equals(c, v)
	case domain.OpNotEquals:
		return c + " != '" + escape(v) + "'"
	case domain.OpContains:
		return c + " LIKE '%" + escape(v) + "%'"
	case domain.OpStartsWith:
		return c + " LIKE '" + escape(v) + "%'"
	case domain.OpEndsWith:
		return c + " LIKE '%" + escape(v) + "'"
	case domain.OpGreaterThan:
		return c + " > " + formatValue(v, numeric)
	case domain.OpGreaterOrEqual:
		return c + " >= " + formatValue(v, numeric)
	case domain.OpLessThan:
		return c + " < " + formatValue(v, numeric)
	case domain.OpLessOrEqual:
		return c + " <= " + formatValue(v, numeric)
	case domain.OpIsNull:
		return c + " IS NULL"
	case domain.OpIsNotNull:
		return c + " IS NOT NULL"
	case domain.OpIn:
		return c + " IN (" + formatList(v) + ")"
	case domain.OpNotIn:
		return c + " NOT IN (" + formatList(v) + ")"
	case domain.OpBetween:
		parts := strings.Split(v, ",")
		if len(parts) == 2 {
			return c + " BETWEEN " + formatValue(parts[0], numeric) + " AND " + formatValue(parts[1], numeric)
		}
		log.Printf("[QUERY] BETWEEN on %q needs two values, got %d; rendering as equals", c, len(parts))
		return equals(c, v)
	default:
		log.Printf("[QUERY] unknown operator %q on %q; rendering as equals", f.Operator, c)
		return equals(c, v)
	}
}

func equals(column, value string) string {
	return column + " = '" + escape(value) + "'"
}

func escape(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func formatValue(v string, numeric bool) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "NULL"
	}
	if numeric {
		return v
	}
	return "'" + escape(v) + "'"
}

func formatList(v string) string {
	if strings.TrimSpace(v) == "" {
		return "NULL"
	}
	parts := strings.Split(v, ",")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = "'" + escape(strings.TrimSpace(part)) + "'"
	}
	return strings.Join(quoted, ", ")
}

func orderByClause(specs []domain.SortSpec) string {
	valid := make([]domain.SortSpec, 0, len(specs))
	for _, s := range specs {
		if s.IsValid() {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Priority < valid[j].Priority
	})
	terms := make([]string, len(valid))
	for i, s := range valid {
		terms[i] = s.Column + " " + s.Direction.SQL()
	}
	return strings.Join(terms, ", ")
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
