package domain

import (
	"fmt"
	"strings"
)

// LogicalKind is the coarse classification of a native column type.
type LogicalKind string

const (
	KindNumeric  LogicalKind = "numeric"
	KindText     LogicalKind = "text"
	KindDateTime LogicalKind = "datetime"
	KindBoolean  LogicalKind = "boolean"
	KindBinary   LogicalKind = "binary"
)

var (
	numericMarkers  = []string{"int", "decimal", "numeric", "float", "double", "real"}
	dateTimeMarkers = []string{"date", "time", "timestamp"}
	booleanMarkers  = []string{"bit", "boolean"}
	binaryMarkers   = []string{"blob", "binary", "varbinary", "image"}
)

// ClassifyType maps a native type name to its logical kind. Matching is a
// case-insensitive substring test, first match wins.
func ClassifyType(nativeType string) LogicalKind {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	switch {
	case containsAny(t, numericMarkers):
		return KindNumeric
	case containsAny(t, dateTimeMarkers):
		return KindDateTime
	case containsAny(t, booleanMarkers) || t == "bool":
		return KindBoolean
	case containsAny(t, binaryMarkers):
		return KindBinary
	default:
		return KindText
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// ColumnDescriptor describes one column as reported by the catalog.
type ColumnDescriptor struct {
	Name            string  `json:"name"`
	NativeType      string  `json:"nativeType"`
	Size            int     `json:"size"`
	Nullable        bool    `json:"nullable"`
	DefaultValue    *string `json:"defaultValue,omitempty"`
	IsPrimaryKey    bool    `json:"isPrimaryKey"`
	IsAutoIncrement bool    `json:"isAutoIncrement"`
}

// Kind returns the logical kind derived from NativeType.
func (c ColumnDescriptor) Kind() LogicalKind {
	return ClassifyType(c.NativeType)
}

// SameAs compares by (name, native type), the column's identity.
func (c ColumnDescriptor) SameAs(other ColumnDescriptor) bool {
	return c.Name == other.Name && c.NativeType == other.NativeType
}

// DisplayName renders e.g. "id (INT(11)) [PK] [AUTO] [NOT NULL]".
func (c ColumnDescriptor) DisplayName() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteString(" (")
	sb.WriteString(c.NativeType)
	if c.Size > 0 && !strings.Contains(strings.ToLower(c.NativeType), "text") {
		fmt.Fprintf(&sb, "(%d)", c.Size)
	}
	sb.WriteString(")")
	if c.IsPrimaryKey {
		sb.WriteString(" [PK]")
	}
	if c.IsAutoIncrement {
		sb.WriteString(" [AUTO]")
	}
	if !c.Nullable {
		sb.WriteString(" [NOT NULL]")
	}
	return sb.String()
}
