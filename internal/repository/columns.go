package repository

import "strings"

// prefixColumns qualifies a comma-separated column list with a table alias,
// for queries that join and would otherwise hit ambiguous column names.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
