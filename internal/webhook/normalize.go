package webhook

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/webhooks/v6/github"
	"github.com/google/uuid"

	"github.com/4lch4/repo-feed/internal/database"
)

// EventHeader carries the event-type tag of a delivery.
const EventHeader = "X-GitHub-Event"

// Event-type tags handled by Normalize.
const (
	EventPush        = string(github.PushEvent)
	EventPullRequest = string(github.PullRequestEvent)
)

// UnknownAuthor is recorded when the payload has no sender login.
const UnknownAuthor = "Unknown"

// ErrMalformedPayload is returned for bodies that are not a JSON object.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Normalize maps a delivery to an event entry. The boolean result is false
// when the delivery is valid but irrelevant to the feed (unknown event type,
// pull request actions other than opened or merged) and nothing should be
// stored.
func Normalize(eventType string, body []byte, now time.Time) (database.EventEntry, bool, error) {
	p, err := ParsePayload(body)
	if err != nil {
		return database.EventEntry{}, false, err
	}

	entry := database.EventEntry{Author: UnknownAuthor}
	if login, ok := p.SenderLogin(); ok {
		entry.Author = login
	}

	var (
		candidate    string
		hasCandidate bool
		id           string
		hasID        bool
	)

	switch eventType {
	case EventPush:
		entry.Action = database.ActionPush
		ref, _ := p.Ref()
		entry.ToBranch = lastSegment(ref)
		id, hasID = p.After()
		candidate, hasCandidate = p.HeadCommitTimestamp()

	case EventPullRequest:
		entry.FromBranch, _ = p.HeadRef()
		entry.ToBranch, _ = p.BaseRef()
		id, hasID = p.PullRequestID()

		action, _ := p.Action()
		switch {
		case action == "opened":
			entry.Action = database.ActionPullRequest
			candidate, hasCandidate = p.CreatedAt()
		case action == "closed" && p.Merged():
			entry.Action = database.ActionMerge
			candidate, hasCandidate = p.MergedAt()
		default:
			return database.EventEntry{}, false, nil
		}

	default:
		return database.EventEntry{}, false, nil
	}

	entry.EventID = id
	if !hasID || id == "" {
		entry.EventID = uuid.NewString()
	}
	entry.TimestampRaw, entry.Timestamp = ResolveTimestamp(candidate, hasCandidate, now)

	return entry, true, nil
}

// lastSegment returns what follows the final "/" of a ref such as
// "refs/heads/main".
func lastSegment(ref string) string {
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
