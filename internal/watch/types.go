// Package watch holds the domain model and the diff engine: given the
// previously committed per-target marker and a fresh snapshot of recent
// activity, decide exactly which items are new.
package watch

import (
	"strings"
	"time"
)

// Kind discriminates activity item types.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Mode discriminates what a target is watched for.
type Mode string

const (
	// ModeActivity reports new posts and comments.
	ModeActivity Mode = "activity"
	// ModeAvailability reports username availability transitions.
	ModeAvailability Mode = "availability"
)

// Target is one configured Reddit identity under observation.
// Immutable for the duration of a run.
type Target struct {
	Username string
	Label    string
	// Communities restricts which subreddits count as relevant.
	// Names are lowercased at config load; empty matches all.
	Communities []string
	Mode        Mode
}

// Watches reports whether activity in the given subreddit is relevant
// for this target.
func (t Target) Watches(community string) bool {
	if len(t.Communities) == 0 {
		return true
	}
	community = strings.ToLower(community)
	for _, c := range t.Communities {
		if c == community {
			return true
		}
	}
	return false
}

// Item is one observed unit of activity. Ephemeral: fetched fresh each
// cycle, never persisted beyond the marker derived from it.
type Item struct {
	// ID is the Reddit fullname (e.g. "t3_abc123"), unique within a
	// target's stream and orderable by creation time within a kind.
	ID        string
	Kind      Kind
	CreatedAt time.Time
	Community string
	Title     string
	Body      string
	Permalink string
	// LinkURL is the outbound URL of a link post, empty otherwise.
	LinkURL string
}

// StateKind discriminates the persisted marker variants.
type StateKind string

const (
	StateCursor       StateKind = "cursor"
	StateAvailability StateKind = "availability"
)

// State is the persisted per-target marker.
//
// For cursor states, LastSeenID/LastSeenAt identify the newest item already
// inspected; they only ever move forward within a target's history.
type State struct {
	Kind StateKind `json:"kind"`

	LastSeenID string    `json:"last_seen_id,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`

	Available bool      `json:"available,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// newer reports whether item a sits after the marker position (ts, id).
// Timestamp decides; equal timestamps fall back to id ordering.
func newer(a Item, ts time.Time, id string) bool {
	if a.CreatedAt.After(ts) {
		return true
	}
	if a.CreatedAt.Equal(ts) {
		return idLess(id, a.ID)
	}
	return false
}

// idLess orders Reddit base36 ids: shorter ids are older, same-length ids
// compare lexicographically.
func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
