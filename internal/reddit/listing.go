package reddit

import (
	"time"

	"snoowatch/internal/watch"
)

// listingEnvelope matches the Reddit listing wire format:
// {"kind":"Listing","data":{"children":[{"kind":"t3","data":{...}}]}}
type listingEnvelope struct {
	Data struct {
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

// thingData is the union of the t3 (link) and t1 (comment) fields we read.
type thingData struct {
	Name       string  `json:"name"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`

	// t3 only
	Title    string `json:"title"`
	SelfText string `json:"selftext"`
	URL      string `json:"url"`

	// t1 only
	Body      string `json:"body"`
	LinkTitle string `json:"link_title"`
}

func (c listingChild) item() (watch.Item, bool) {
	d := c.Data
	if d.Name == "" {
		return watch.Item{}, false
	}

	it := watch.Item{
		ID:        d.Name,
		CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		Community: d.Subreddit,
		Permalink: d.Permalink,
	}
	switch c.Kind {
	case "t3":
		it.Kind = watch.KindPost
		it.Title = d.Title
		it.Body = d.SelfText
		it.LinkURL = d.URL
	case "t1":
		it.Kind = watch.KindComment
		it.Title = d.LinkTitle
		it.Body = d.Body
	default:
		return watch.Item{}, false
	}
	return it, true
}
