package rewrite

import (
	"fmt"
	"sort"
)

// edit replaces body[Start:End) with Replacement.
type edit struct {
	Start       int
	End         int
	Replacement string
}

// applyEdits splices every edit into body. Edits are applied in descending
// start order so earlier offsets stay valid while later spans are replaced.
// Overlapping or out-of-range edits are rejected.
func applyEdits(body string, edits []edit) (string, error) {
	if len(edits) == 0 {
		return body, nil
	}

	ordered := make([]edit, len(edits))
	copy(ordered, edits)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	prevStart := len(body) + 1
	for _, e := range ordered {
		if e.Start < 0 || e.End > len(body) || e.Start > e.End {
			return "", fmt.Errorf("rewrite: edit span [%d:%d) out of range for body of %d bytes", e.Start, e.End, len(body))
		}
		if e.End > prevStart {
			return "", fmt.Errorf("rewrite: edit span [%d:%d) overlaps a later edit", e.Start, e.End)
		}
		prevStart = e.Start
	}

	out := body
	for _, e := range ordered {
		out = out[:e.Start] + e.Replacement + out[e.End:]
	}
	return out, nil
}
