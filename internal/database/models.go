package database

import (
	"time"
)

// Action is the normalized kind of a repository event.
type Action string

const (
	ActionPush        Action = "PUSH"
	ActionPullRequest Action = "PULL_REQUEST"
	ActionMerge       Action = "MERGE"
)

// Valid reports whether a is one of the actions the feed knows how to render.
func (a Action) Valid() bool {
	switch a {
	case ActionPush, ActionPullRequest, ActionMerge:
		return true
	}
	return false
}

type EventEntry struct {
	// Storage key. Never exposed to clients.
	ID uint `gorm:"primaryKey;autoIncrement" json:"-"`

	// Opaque identifier of the event. For pushes this is usually the head
	// commit hash, for pull requests the pull request id.
	EventID string `gorm:"column:event_id;size:128" json:"id"`

	// Login of the user that triggered the event, "Unknown" if absent.
	Author string `gorm:"column:author;size:255" json:"author"`

	Action Action `gorm:"column:action;size:32;index" json:"action"`

	// Source branch. Empty for pushes.
	FromBranch string `gorm:"column:from_branch;size:255" json:"from_branch"`

	ToBranch string `gorm:"column:to_branch;size:255" json:"to_branch"`

	// Pre-formatted display time, e.g. "4 June 2025 - 3:42 PM UTC".
	Timestamp string `gorm:"column:timestamp;size:64" json:"timestamp"`

	// Authoritative UTC time used for ordering.
	TimestampRaw time.Time `gorm:"column:timestamp_raw;index" json:"timestamp_raw"`

	// Time the record was written.
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (EventEntry) TableName() string {
	return "events"
}
