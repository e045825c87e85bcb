package contacts

import "strings"

// Search filters a materialized list locally: case-insensitive substring
// match on name, literal substring match on phone. It never touches the
// store. An empty query returns the input unchanged, order preserved.
func Search(list []Contact, query string) []Contact {
	if query == "" {
		return list
	}
	lowered := strings.ToLower(query)
	out := make([]Contact, 0, len(list))
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Name), lowered) || strings.Contains(c.Phone, query) {
			out = append(out, c)
		}
	}
	return out
}
