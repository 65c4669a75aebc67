package value

import (
	"strings"
)

// Display renders v the way the language shows values to the user: strings
// without quotes, arrays and tables with their elements. Shared containers
// can form cycles, which Display breaks by rendering a re-visited container
// as "...".
func Display(v Value) string {
	var sb strings.Builder
	display(&sb, v, make(map[Value]bool))
	return sb.String()
}

func display(sb *strings.Builder, v Value, seen map[Value]bool) {
	switch v := v.(type) {
	case *Array:
		if seen[v] {
			sb.WriteString("[...]")
			return
		}
		seen[v] = true
		sb.WriteByte('[')
		v.Each(func(i int, el Value) {
			if i > 0 {
				sb.WriteString(", ")
			}
			display(sb, el, seen)
		})
		sb.WriteByte(']')
		delete(seen, v)

	case *Table:
		if seen[v] {
			sb.WriteString("{...}")
			return
		}
		seen[v] = true
		sb.WriteByte('{')
		first := true
		v.Each(func(k, val Value) {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			display(sb, k, seen)
			sb.WriteString(": ")
			display(sb, val, seen)
		})
		sb.WriteByte('}')
		delete(seen, v)

	default:
		if v == nil {
			sb.WriteString("()")
			return
		}
		sb.WriteString(v.String())
	}
}
