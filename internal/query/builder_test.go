package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
)

func pg() dialect.Profile { return dialect.Resolve("postgresql") }

func TestBuild_EndToEndPostgres(t *testing.T) {
	d := Descriptor{
		Table:   "orders",
		Columns: []string{"id", "total"},
		Filters: []domain.FilterCondition{{
			Column: "total", Kind: domain.KindNumeric,
			Operator: domain.OpGreaterThan, Value: "100", Connector: domain.ConnectorAnd,
		}},
		Sort:  []domain.SortSpec{{Column: "id", Direction: domain.SortAsc}},
		Limit: 50,
	}
	assert.Equal(t, "SELECT id, total FROM orders WHERE total > 100 ORDER BY id ASC LIMIT 50", Build(d, pg()))
}

func TestBuild_SelectStarWithoutColumns(t *testing.T) {
	assert.Equal(t, "SELECT * FROM customers", Build(Descriptor{Table: "customers"}, pg()))
}

func TestBuild_ClauseOrder(t *testing.T) {
	d := Descriptor{
		Table:   "sales",
		Columns: []string{"region", "COUNT(*)"},
		Filters: []domain.FilterCondition{{Column: "year", Operator: domain.OpEquals, Value: "2024"}},
		GroupBy: []string{"region"},
		Sort:    []domain.SortSpec{{Column: "region", Direction: domain.SortDesc}},
		Limit:   10,
	}
	assert.Equal(t,
		"SELECT region, COUNT(*) FROM sales WHERE year = '2024' GROUP BY region ORDER BY region DESC LIMIT 10",
		Build(d, dialect.Resolve("mysql")))
}

// ─────────────────────────────────────────────────────────────
// Limiting per vendor
// ─────────────────────────────────────────────────────────────

func TestBuild_LimitPerVendor(t *testing.T) {
	cases := []struct {
		vendor string
		want   string
	}{
		{"mysql", "SELECT * FROM t LIMIT 5"},
		{"postgresql", "SELECT * FROM t LIMIT 5"},
		{"sqlite", "SELECT * FROM t LIMIT 5"},
		{"sqlserver", "SELECT TOP 5 * FROM t"},
		{"oracle", "SELECT * FROM t WHERE ROWNUM <= 5"},
	}
	for _, tc := range cases {
		t.Run(tc.vendor, func(t *testing.T) {
			assert.Equal(t, tc.want, Build(Descriptor{Table: "t", Limit: 5}, dialect.Resolve(tc.vendor)))
		})
	}
}

func TestBuild_OracleRownumMergesIntoExistingWhere(t *testing.T) {
	ora := dialect.Resolve("oracle")
	d := Descriptor{
		Table:   "t",
		Filters: []domain.FilterCondition{{Column: "status", Operator: domain.OpEquals, Value: "open"}},
		Sort:    []domain.SortSpec{{Column: "id"}},
		Limit:   5,
	}
	assert.Equal(t, "SELECT * FROM t WHERE status = 'open' AND ROWNUM <= 5 ORDER BY id ASC", Build(d, ora))
}

func TestBuild_OracleRownumWrapsDisjunction(t *testing.T) {
	ora := dialect.Resolve("oracle")
	d := Descriptor{
		Table: "t",
		Filters: []domain.FilterCondition{
			{Column: "a", Operator: domain.OpEquals, Value: "1"},
			{Column: "b", Operator: domain.OpEquals, Value: "2", Connector: domain.ConnectorOr},
		},
		Limit: 5,
	}
	assert.Equal(t, "SELECT * FROM t WHERE (a = '1' OR b = '2') AND ROWNUM <= 5", Build(d, ora))
}

func TestBuild_SQLServerTopKeepsClauses(t *testing.T) {
	d := Descriptor{
		Table:   "Customers",
		Columns: []string{"Id", "Name"},
		Filters: []domain.FilterCondition{{Column: "Name", Operator: domain.OpStartsWith, Value: "A"}},
		Sort:    []domain.SortSpec{{Column: "Name"}},
		Limit:   3,
	}
	assert.Equal(t,
		"SELECT TOP 3 Id, Name FROM Customers WHERE Name LIKE 'A%' ORDER BY Name ASC",
		Build(d, dialect.Resolve("sqlserver")))
}

func TestBuild_PageWindow(t *testing.T) {
	cases := []struct {
		vendor string
		window Window
		want   string
	}{
		{"postgresql", Window{Offset: 0, Size: 100}, "SELECT * FROM t LIMIT 100"},
		{"mysql", Window{Offset: 200, Size: 100}, "SELECT * FROM t LIMIT 100 OFFSET 200"},
		{"sqlserver", Window{Offset: 200, Size: 100}, "SELECT * FROM t ORDER BY (SELECT NULL) OFFSET 200 ROWS FETCH NEXT 100 ROWS ONLY"},
		{"oracle", Window{Offset: 0, Size: 10}, "SELECT * FROM t OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY"},
	}
	for _, tc := range cases {
		t.Run(tc.vendor, func(t *testing.T) {
			w := tc.window
			got := Build(Descriptor{Table: "t", Page: &w, Limit: 99}, dialect.Resolve(tc.vendor))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuild_SQLServerPagingUsesRealOrderWhenGiven(t *testing.T) {
	d := Descriptor{Table: "t", Sort: []domain.SortSpec{{Column: "id", Direction: domain.SortDesc}}, Page: &Window{Offset: 10, Size: 5}}
	assert.Equal(t,
		"SELECT * FROM t ORDER BY id DESC OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY",
		Build(d, dialect.Resolve("sqlserver")))
}

// ─────────────────────────────────────────────────────────────
// Operators
// ─────────────────────────────────────────────────────────────

func TestRenderCondition_Operators(t *testing.T) {
	cases := []struct {
		f    domain.FilterCondition
		want string
	}{
		{domain.FilterCondition{Column: "c", Operator: domain.OpEquals, Value: "v"}, "c = 'v'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpNotEquals, Value: "v"}, "c != 'v'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpContains, Value: "v"}, "c LIKE '%v%'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpStartsWith, Value: "v"}, "c LIKE 'v%'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpEndsWith, Value: "v"}, "c LIKE '%v'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpGreaterThan, Value: "5", Kind: domain.KindNumeric}, "c > 5"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpGreaterOrEqual, Value: " 5 ", Kind: domain.KindNumeric}, "c >= 5"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpLessThan, Value: "2024-01-01", Kind: domain.KindDateTime}, "c < '2024-01-01'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpLessOrEqual, Value: "b"}, "c <= 'b'"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpIsNull}, "c IS NULL"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpIsNotNull}, "c IS NOT NULL"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpIn, Value: "a, b ,c"}, "c IN ('a', 'b', 'c')"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpNotIn, Value: "1,2", Kind: domain.KindNumeric}, "c NOT IN ('1', '2')"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpBetween, Value: "1, 10", Kind: domain.KindNumeric}, "c BETWEEN 1 AND 10"},
		{domain.FilterCondition{Column: "c", Operator: domain.OpBetween, Value: "a,z"}, "c BETWEEN 'a' AND 'z'"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderCondition(tc.f))
		})
	}
}

func TestRenderCondition_BetweenWrongArityFallsBackToEquals(t *testing.T) {
	for _, v := range []string{"5", "1,2,3"} {
		got := RenderCondition(domain.FilterCondition{Column: "c", Operator: domain.OpBetween, Value: v, Kind: domain.KindNumeric})
		assert.Equal(t, RenderCondition(domain.FilterCondition{Column: "c", Operator: domain.OpEquals, Value: v}), got)
	}
}

func TestRenderCondition_UnknownOperatorFallsBackToEquals(t *testing.T) {
	got := RenderCondition(domain.FilterCondition{Column: "c", Operator: "SOUNDS_LIKE", Value: "x"})
	assert.Equal(t, "c = 'x'", got)
}

func TestRenderCondition_EscapesQuotes(t *testing.T) {
	values := []string{"O'Brien", "''", "it's a 'test'"}
	ops := []domain.Operator{
		domain.OpEquals, domain.OpNotEquals, domain.OpContains, domain.OpStartsWith,
		domain.OpEndsWith, domain.OpGreaterThan, domain.OpIn, domain.OpBetween,
	}
	for _, v := range values {
		for _, op := range ops {
			sql := RenderCondition(domain.FilterCondition{Column: "c", Operator: op, Value: v})
			assert.Contains(t, sql, strings.ReplaceAll(v, "'", "''"), "%s", op)
			assert.Zero(t, strings.Count(sql, "'")%2, "unbalanced quotes in %s", sql)
		}
	}
}

func TestRenderCondition_EmptyListRendersNull(t *testing.T) {
	// Reached only when IsValid is bypassed.
	assert.Equal(t, "c IN (NULL)", RenderCondition(domain.FilterCondition{Column: "c", Operator: domain.OpIn, Value: " "}))
	assert.Equal(t, "c > NULL", RenderCondition(domain.FilterCondition{Column: "c", Operator: domain.OpGreaterThan, Value: ""}))
}

// ─────────────────────────────────────────────────────────────
// WHERE assembly and count queries
// ─────────────────────────────────────────────────────────────

func TestWhere_FirstConnectorIgnoredAndInvalidSkipped(t *testing.T) {
	filters := []domain.FilterCondition{
		{Column: "a", Operator: domain.OpEquals, Value: "1", Connector: domain.ConnectorOr},
		{Column: "", Operator: domain.OpEquals, Value: "ignored"},
		{Column: "b", Operator: domain.OpIsNull, Connector: domain.ConnectorOr},
		{Column: "c", Operator: domain.OpEquals, Value: "3", Connector: domain.ConnectorAnd},
	}
	assert.Equal(t, "a = '1' OR b IS NULL AND c = '3'", WhereClause(filters))
}

func TestWhere_AllInvalidDropsWhere(t *testing.T) {
	d := Descriptor{Table: "t", Filters: []domain.FilterCondition{{Column: "a", Operator: domain.OpEquals}}}
	assert.Equal(t, "SELECT * FROM t", Build(d, pg()))
	assert.Equal(t, "SELECT COUNT(*) FROM t", BuildCount(d))
}

func TestBuildCount_SharesWhereClause(t *testing.T) {
	d := Descriptor{
		Table:   "orders",
		Columns: []string{"id"},
		Filters: []domain.FilterCondition{
			{Column: "customer", Operator: domain.OpContains, Value: "O'Neil"},
			{Column: "total", Operator: domain.OpBetween, Value: "10,20", Kind: domain.KindNumeric, Connector: domain.ConnectorOr},
		},
		GroupBy: []string{"id"},
		Sort:    []domain.SortSpec{{Column: "id"}},
		Limit:   5,
	}
	count := BuildCount(d)
	assert.Equal(t, "SELECT COUNT(*) FROM orders WHERE customer LIKE '%O''Neil%' OR total BETWEEN 10 AND 20", count)

	where := " WHERE " + WhereClause(d.Filters)
	for _, vendor := range []string{"mysql", "postgresql", "sqlserver", "sqlite"} {
		sql := Build(d, dialect.Resolve(vendor))
		require.Contains(t, sql, where, vendor)
		assert.NotContains(t, count, "ORDER BY")
		assert.NotContains(t, count, "GROUP BY")
	}
}

func TestBuild_SortByPriorityStable(t *testing.T) {
	d := Descriptor{
		Table: "t",
		Sort: []domain.SortSpec{
			{Column: "c", Priority: 2},
			{Column: "a", Priority: 1, Direction: domain.SortDesc},
			{Column: "b", Priority: 1},
			{Column: " "},
		},
	}
	assert.Equal(t, "SELECT * FROM t ORDER BY a DESC, b ASC, c ASC", Build(d, pg()))
}

func TestBuild_Deterministic(t *testing.T) {
	d := Descriptor{
		Table:   "t",
		Filters: []domain.FilterCondition{{Column: "x", Operator: domain.OpIn, Value: "1,2"}},
		Limit:   7,
	}
	first := Build(d, dialect.Resolve("oracle"))
	for range 5 {
		assert.Equal(t, first, Build(d, dialect.Resolve("oracle")))
	}
}

func TestSampleQuery(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t LIMIT 10", SampleQuery("t", 10, dialect.Resolve("mysql")))
	assert.Equal(t, "SELECT TOP 10 * FROM t", SampleQuery("t", 10, dialect.Resolve("sqlserver")))
	assert.Equal(t, "SELECT * FROM t WHERE ROWNUM <= 10", SampleQuery("t", 10, dialect.Resolve("oracle")))
}
