package venue

import (
	"strings"

	"github.com/venuemap/explorer/pkg/core"
)

// Separator splits free text into a search term and a location,
// e.g. "tacos near baton rouge".
const Separator = "near"

// ParseQueryText turns free text into an explore query. The text is split on
// the last standalone occurrence of Separator (any case). Without a separator
// the whole text is used as both the term and the location.
func ParseQueryText(text string) core.ExploreQuery {
	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		if !strings.EqualFold(fields[i], Separator) {
			continue
		}
		term := strings.Join(fields[:i], " ")
		near := strings.Join(fields[i+1:], " ")
		if near == "" {
			near = term
		}
		return core.ExploreQuery{Term: term, Near: near}
	}

	whole := strings.Join(fields, " ")
	return core.ExploreQuery{Term: whole, Near: whole}
}
