package models

import (
	"fmt"
	"strings"
)

// ColumnDef pairs a column name with its ClickHouse type. Table schemas are
// declared as ordered column lists so DDL and inserts stay in sync.
type ColumnDef struct {
	Name string
	Type string
}

// ColumnsToSchemaSQL renders the column list of a CREATE TABLE statement.
func ColumnsToSchemaSQL(cols []ColumnDef) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s %s", c.Name, c.Type))
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnNames renders the comma-separated column names for INSERT statements.
func ColumnNames(cols []ColumnDef) string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// Placeholders renders len(cols) bind markers.
func Placeholders(cols []ColumnDef) string {
	return strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
}
