package sqlite

import "strings"

func splitColumns(columns string) []string {
	raw := strings.Split(columns, ",")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(strings.ReplaceAll(c, "\n", " "))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
