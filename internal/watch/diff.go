package watch

import (
	"sort"
	"time"
)

// Diff compares a fresh snapshot against the previously committed cursor and
// returns the items to report, oldest first, plus the advanced cursor.
//
// Snapshot order does not matter; items are sorted internally by creation
// time (id as tie-break). A nil prev means the target has never been
// observed: nothing is reported and the cursor is seeded at the newest
// snapshot item, so a target's backlog never floods the notifier.
//
// The returned next state is nil when there is nothing to commit (state
// unchanged). The cursor tracks the furthest item inspected, not the
// furthest item notified: an item excluded by the community filter still
// advances the cursor and is never re-surfaced later.
func Diff(prev *State, target Target, snapshot []Item) ([]Item, *State) {
	if prev != nil && prev.Kind != StateCursor {
		// Mode changed since the state was written; re-seed.
		prev = nil
	}
	items := append([]Item(nil), snapshot...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return idLess(items[i].ID, items[j].ID)
	})

	if len(items) == 0 {
		// Empty snapshot: nothing new, marker untouched.
		return nil, nil
	}

	newest := items[len(items)-1]

	if prev == nil {
		return nil, &State{
			Kind:       StateCursor,
			LastSeenID: newest.ID,
			LastSeenAt: newest.CreatedAt,
		}
	}

	cutTS, cutID := cursorPosition(*prev, items)

	var fresh []Item
	for _, it := range items {
		if !newer(it, cutTS, cutID) {
			continue
		}
		if !target.Watches(it.Community) {
			continue
		}
		fresh = append(fresh, it)
	}

	// Never regress: only commit a new cursor when the newest inspected
	// item sits past the stored marker (items may disappear via deletion).
	if !newer(newest, prev.LastSeenAt, prev.LastSeenID) {
		return fresh, nil
	}
	return fresh, &State{
		Kind:       StateCursor,
		LastSeenID: newest.ID,
		LastSeenAt: newest.CreatedAt,
	}
}

// cursorPosition resolves the stored marker against the snapshot. When the
// marker item is still present its own position wins; when it has been
// deleted the stored timestamp is the cutoff, so a vanished marker can
// never produce false positives.
func cursorPosition(prev State, items []Item) (time.Time, string) {
	for _, it := range items {
		if it.ID == prev.LastSeenID {
			return it.CreatedAt, it.ID
		}
	}
	return prev.LastSeenAt, prev.LastSeenID
}

// DiffAvailability folds one availability probe into the stored state.
// The first probe only seeds the state; transitions afterwards report true.
func DiffAvailability(prev *State, available bool, now time.Time) (bool, *State) {
	next := &State{
		Kind:      StateAvailability,
		Available: available,
		CheckedAt: now,
	}
	if prev == nil || prev.Kind != StateAvailability {
		return false, next
	}
	return prev.Available != available, next
}
