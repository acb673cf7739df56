package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"snoowatch/internal/watch"
)

const (
	// Reddit orange, same as the embeds the original webhook bots send.
	embedColor = 0xFF5700

	redditFooterIcon = "https://i.imgur.com/ucGCjfj.png"
)

// Discord posts one embed per event to a webhook URL.
type Discord struct {
	webhookURL string
	client     *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, ev Event) error {
	payload := webhookPayload{Embeds: []embed{buildEmbed(ev)}}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord webhook: HTTP %d", resp.StatusCode)
	}
	return nil
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Author      *embedAuthor `json:"author,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedAuthor struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type embedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

func buildEmbed(ev Event) embed {
	e := embed{
		Color: embedColor,
		Author: &embedAuthor{
			Name: DisplayAuthor(ev.Target),
			URL:  UserURL(ev.Target.Username),
		},
		Footer: &embedFooter{Text: "Reddit", IconURL: redditFooterIcon},
	}

	if ev.Kind == EventAvailability {
		if ev.Available {
			e.Title = "u/" + ev.Target.Username + " is now available"
		} else {
			e.Title = "u/" + ev.Target.Username + " is no longer available"
		}
		e.URL = UserURL(ev.Target.Username)
		e.Timestamp = ev.At.UTC().Format(time.RFC3339)
		return e
	}

	it := ev.Item
	e.Timestamp = it.CreatedAt.UTC().Format(time.RFC3339)
	e.URL = ItemURL(it)

	switch it.Kind {
	case watch.KindPost:
		e.Title = it.Title
		// Self posts carry their text; link posts just the outbound URL.
		if it.Body != "" {
			e.Description = ">>> " + Excerpt(it.Body)
		} else if it.LinkURL != "" {
			e.Description = Excerpt(it.LinkURL)
		}
	case watch.KindComment:
		e.Title = "Comment in r/" + it.Community
		e.Description = ">>> " + Excerpt(it.Body)
	}
	return e
}
