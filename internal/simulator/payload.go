// Package simulator fabricates webhook deliveries shaped like the ones a
// source-control host sends, for exercising the feed without a live
// integration.
package simulator

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/go-playground/webhooks/v6/github"
	"github.com/lithammer/shortuuid/v4"
)

// Kind is the operator-facing event kind.
type Kind string

const (
	KindPush        Kind = "push"
	KindPullRequest Kind = "pull_request"
	KindMerge       Kind = "merge"
)

// ErrUnknownKind is returned for kinds other than push, pull_request and merge.
var ErrUnknownKind = errors.New("invalid event type")

// Request holds the fields an operator submits on the trigger form.
// RequiredFields must be present in the form but may be empty.
type Request struct {
	Kind       Kind   `form:"event_type"`
	Author     string `form:"author"`
	ToBranch   string `form:"to_branch"`
	FromBranch string `form:"from_branch"`
}

// RequiredFields lists the trigger form keys that must be submitted.
var RequiredFields = []string{"event_type", "author", "to_branch"}

// BuildPayload returns the event-type tag and body a host would send for req.
// Bodies use the host's own payload types so field names, nesting and JSON
// types match a real delivery.
func BuildPayload(req Request, now time.Time) (github.Event, any, error) {
	now = now.UTC().Truncate(time.Second)

	switch req.Kind {
	case KindPush:
		sha, err := commitID()
		if err != nil {
			return "", nil, err
		}
		var p github.PushPayload
		p.Ref = "refs/heads/" + req.ToBranch
		p.After = sha
		p.HeadCommit.ID = sha
		p.HeadCommit.Timestamp = now.Format(time.RFC3339)
		p.Sender.Login = req.Author
		return github.PushEvent, p, nil

	case KindPullRequest:
		p := pullRequest(req, now)
		p.Action = "opened"
		p.PullRequest.State = "open"
		return github.PullRequestEvent, p, nil

	case KindMerge:
		p := pullRequest(req, now)
		p.Action = "closed"
		p.PullRequest.State = "closed"
		p.PullRequest.Merged = true
		p.PullRequest.MergedAt = &now
		p.PullRequest.ClosedAt = &now
		return github.PullRequestEvent, p, nil
	}

	return "", nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
}

func pullRequest(req Request, now time.Time) github.PullRequestPayload {
	var p github.PullRequestPayload
	p.Number = mrand.Int63n(10000) + 1
	p.PullRequest.ID = mrand.Int63n(1<<40) + 1
	p.PullRequest.NodeID = "PR_" + shortuuid.New()
	p.PullRequest.Number = p.Number
	p.PullRequest.User.Login = req.Author
	p.PullRequest.Head.Ref = req.FromBranch
	p.PullRequest.Base.Ref = req.ToBranch
	p.PullRequest.CreatedAt = now
	p.PullRequest.UpdatedAt = now
	p.Sender.Login = req.Author
	return p
}

func commitID() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate commit id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
