package report

import "strings"

// DefaultBudget leaves headroom under the 2000-character Discord limit for
// the packer's joins and any channel-side prefixes.
const DefaultBudget = 1900

const chunkSeparator = "\n\n"

// Pack merges ordered chunks into as few messages as fit the byte budget.
// Chunks are never reordered. A single chunk over the budget is split on
// line boundaries, unless allowOversized lets it through whole.
func Pack(chunks []string, budget int, allowOversized bool) []string {
	if budget <= 0 {
		budget = DefaultBudget
	}

	var messages []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			messages = append(messages, current.String())
			current.Reset()
		}
	}

	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		if len(chunk) > budget && !allowOversized {
			flush()
			messages = append(messages, splitLines(chunk, budget)...)
			continue
		}

		needed := len(chunk)
		if current.Len() > 0 {
			needed += len(chunkSeparator)
		}
		if current.Len()+needed > budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(chunkSeparator)
		}
		current.WriteString(chunk)
	}
	flush()
	return messages
}

// splitLines breaks an oversized chunk on newlines, keeping each piece
// under the budget. A single line longer than the budget is hard-cut.
func splitLines(chunk string, budget int) []string {
	var out []string
	var current strings.Builder

	for _, line := range strings.Split(chunk, "\n") {
		for len(line) > budget {
			if current.Len() > 0 {
				out = append(out, current.String())
				current.Reset()
			}
			out = append(out, line[:budget])
			line = line[budget:]
		}
		needed := len(line)
		if current.Len() > 0 {
			needed++
		}
		if current.Len()+needed > budget {
			out = append(out, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}
