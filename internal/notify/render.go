package notify

import (
	"strings"

	"snoowatch/internal/watch"
)

const redditBase = "https://reddit.com"

// excerptLimit matches the Discord embed description budget.
const excerptLimit = 4000

// ItemURL returns the full URL to an item. Comment links carry ?context=5
// so the thread around the comment is visible.
func ItemURL(it watch.Item) string {
	u := redditBase + it.Permalink
	if it.Kind == watch.KindComment {
		u += "?context=5"
	}
	return u
}

// UserURL returns the profile URL for a username.
func UserURL(username string) string {
	return redditBase + "/user/" + username
}

// DisplayAuthor formats "u/name" with the optional label appended.
func DisplayAuthor(t watch.Target) string {
	author := "u/" + t.Username
	if t.Label != "" {
		author += " (" + t.Label + ")"
	}
	return author
}

// Excerpt trims a body to the embed budget, ellipsized.
func Excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLimit {
		return text
	}
	return text[:excerptLimit] + "..."
}
