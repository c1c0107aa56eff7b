// Package feed renders stored events as human-readable activity lines.
package feed

import (
	"fmt"

	"github.com/4lch4/repo-feed/internal/database"
)

// Size is the number of events shown on every feed surface.
const Size = 10

// Line renders a single event. It reports false for actions it does not know.
func Line(e database.EventEntry) (string, bool) {
	switch e.Action {
	case database.ActionPush:
		return fmt.Sprintf("%s pushed to %s on %s", e.Author, e.ToBranch, e.Timestamp), true
	case database.ActionPullRequest:
		return fmt.Sprintf("%s submitted a pull request from %s to %s on %s",
			e.Author, e.FromBranch, e.ToBranch, e.Timestamp), true
	case database.ActionMerge:
		return fmt.Sprintf("%s merged branch %s to %s on %s",
			e.Author, e.FromBranch, e.ToBranch, e.Timestamp), true
	}
	return "", false
}

// Lines renders events in order, skipping unknown actions. The result is
// never nil so it encodes as an empty JSON array.
func Lines(events []database.EventEntry) []string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		if line, ok := Line(e); ok {
			lines = append(lines, line)
		}
	}
	return lines
}
