// Package repositories provides data access over Postgres for the dish
// catalog, reference foods, chat sessions and missing-match records.
package repositories

import (
	"strconv"
	"strings"
)

// formatVector renders an embedding in pgvector's text format, e.g.
// "[0.1,0.2,0.3]". Query parameters are passed this way and cast with
// ::vector in SQL.
func formatVector(embedding []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
