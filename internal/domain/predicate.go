package domain

import "strings"

// Operator is a filter comparison. The zero value is "unset".
type Operator string

const (
	OpEquals         Operator = "EQUALS"
	OpNotEquals      Operator = "NOT_EQUALS"
	OpContains       Operator = "CONTAINS"
	OpStartsWith     Operator = "STARTS_WITH"
	OpEndsWith       Operator = "ENDS_WITH"
	OpGreaterThan    Operator = "GREATER_THAN"
	OpGreaterOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	OpLessThan       Operator = "LESS_THAN"
	OpLessOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OpIsNull         Operator = "IS_NULL"
	OpIsNotNull      Operator = "IS_NOT_NULL"
	OpIn             Operator = "IN"
	OpNotIn          Operator = "NOT_IN"
	OpBetween        Operator = "BETWEEN"
)

// OperatorInfo is the SQL token and human label of an operator.
type OperatorInfo struct {
	SQL     string `json:"sql"`
	Display string `json:"display"`
}

var operatorTable = map[Operator]OperatorInfo{
	OpEquals:         {"=", "Equals"},
	OpNotEquals:      {"!=", "Not equals"},
	OpContains:       {"LIKE", "Contains"},
	OpStartsWith:     {"LIKE", "Starts with"},
	OpEndsWith:       {"LIKE", "Ends with"},
	OpGreaterThan:    {">", "Greater than"},
	OpGreaterOrEqual: {">=", "Greater or equal"},
	OpLessThan:       {"<", "Less than"},
	OpLessOrEqual:    {"<=", "Less or equal"},
	OpIsNull:         {"IS NULL", "Is null"},
	OpIsNotNull:      {"IS NOT NULL", "Is not null"},
	OpIn:             {"IN", "In list"},
	OpNotIn:          {"NOT IN", "Not in list"},
	OpBetween:        {"BETWEEN", "Between"},
}

// Operators lists every operator in presentation order.
func Operators() []Operator {
	return []Operator{
		OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith,
		OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
		OpIsNull, OpIsNotNull, OpIn, OpNotIn, OpBetween,
	}
}

// DescribeOperator returns the SQL token and display label for op.
func DescribeOperator(op Operator) (OperatorInfo, bool) {
	info, ok := operatorTable[op]
	return info, ok
}

var operatorSymbols = map[string]Operator{
	"=":           OpEquals,
	"!=":          OpNotEquals,
	"<>":          OpNotEquals,
	"LIKE":        OpContains,
	">":           OpGreaterThan,
	">=":          OpGreaterOrEqual,
	"<":           OpLessThan,
	"<=":          OpLessOrEqual,
	"IS NULL":     OpIsNull,
	"IS NOT NULL": OpIsNotNull,
	"NOT IN":      OpNotIn,
}

// ParseOperator accepts an operator name ("GREATER_THAN") or its SQL symbol
// (">"), case-insensitively.
func ParseOperator(s string) (Operator, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := operatorTable[Operator(key)]; ok {
		return Operator(key), true
	}
	if op, ok := operatorSymbols[key]; ok {
		return op, true
	}
	return "", false
}

// NeedsValue reports whether the operator takes an operand.
func (op Operator) NeedsValue() bool {
	return op != OpIsNull && op != OpIsNotNull
}

// Connector joins a condition to the one before it.
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// SQL returns the connector keyword; anything but OR means AND.
func (c Connector) SQL() string {
	if strings.EqualFold(string(c), string(ConnectorOr)) {
		return "OR"
	}
	return "AND"
}

// FilterCondition is one WHERE term. Connector applies to the join with the
// previous condition and is ignored on the first one.
type FilterCondition struct {
	Column    string      `json:"column"`
	Kind      LogicalKind `json:"kind,omitempty"`
	Operator  Operator    `json:"operator"`
	Value     string      `json:"value"`
	Connector Connector   `json:"connector,omitempty"`
}

// IsValid holds iff the column is set, an operator is set and either the
// operator takes no operand or the value is non-blank.
func (f FilterCondition) IsValid() bool {
	if strings.TrimSpace(f.Column) == "" || f.Operator == "" {
		return false
	}
	if !f.Operator.NeedsValue() {
		return true
	}
	return strings.TrimSpace(f.Value) != ""
}

// DisplayString renders the condition for humans, e.g. "OR total Greater than 100".
func (f FilterCondition) DisplayString() string {
	var sb strings.Builder
	if f.Connector.SQL() == "OR" {
		sb.WriteString("OR ")
	}
	label := string(f.Operator)
	if info, ok := DescribeOperator(f.Operator); ok {
		label = info.Display
	}
	sb.WriteString(f.Column)
	sb.WriteString(" ")
	sb.WriteString(label)
	if f.Operator.NeedsValue() {
		sb.WriteString(" ")
		sb.WriteString(f.Value)
	}
	return sb.String()
}

// SortDirection is ASC or DESC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SQL returns the direction keyword; anything but DESC means ASC.
func (d SortDirection) SQL() string {
	if strings.EqualFold(string(d), string(SortDesc)) {
		return "DESC"
	}
	return "ASC"
}

// SortSpec orders by one column. Lower priority sorts first, ties keep
// insertion order.
type SortSpec struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
	Priority  int           `json:"priority"`
}

func (s SortSpec) IsValid() bool {
	return strings.TrimSpace(s.Column) != ""
}
