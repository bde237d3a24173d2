package evaluator

import "github.com/abhisek/tutord/internal/catalog"

// GenericNudge is used when an item carries no hints at all.
const GenericNudge = "Let's break it down: what changes, and what stays the same?"

// maxHintLevel caps the ladder; attempts beyond the cap keep getting
// the most explicit hint.
const maxHintLevel = 3

// PickHint selects a hint by attempt count. The desired level is
// min(3, attempts+1); levels are searched in order
// [desired, desired−1, desired+1]; failing that, the first available
// hint; failing that, a generic nudge.
func PickHint(hints []catalog.Hint, attemptsSoFar int) string {
	desired := attemptsSoFar + 1
	if desired > maxHintLevel {
		desired = maxHintLevel
	}

	for _, level := range []int{desired, desired - 1, desired + 1} {
		for _, h := range hints {
			if h.Level == level && h.Text != "" {
				return h.Text
			}
		}
	}

	if len(hints) > 0 && hints[0].Text != "" {
		return hints[0].Text
	}
	return GenericNudge
}
