package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

func post(id string) watch.Item {
	return watch.Item{
		ID:        id,
		Kind:      watch.KindPost,
		CreatedAt: time.Unix(1700000100, 0).UTC(),
		Community: "golang",
		Title:     "Hello",
		Body:      "self text",
		Permalink: "/r/golang/comments/abc/hello/",
	}
}

func TestBuildEmbedPost(t *testing.T) {
	ev := Event{
		Kind:   EventActivity,
		Target: watch.Target{Username: "spez", Label: "Admin"},
		Item:   post("t3_abc"),
	}

	e := buildEmbed(ev)
	if e.Title != "Hello" {
		t.Fatalf("title = %q", e.Title)
	}
	if e.URL != "https://reddit.com/r/golang/comments/abc/hello/" {
		t.Fatalf("url = %q", e.URL)
	}
	if e.Description != ">>> self text" {
		t.Fatalf("description = %q", e.Description)
	}
	if e.Color != 0xFF5700 {
		t.Fatalf("color = %x", e.Color)
	}
	if e.Author == nil || e.Author.Name != "u/spez (Admin)" || e.Author.URL != "https://reddit.com/user/spez" {
		t.Fatalf("author = %+v", e.Author)
	}
	if e.Footer == nil || e.Footer.Text != "Reddit" {
		t.Fatalf("footer = %+v", e.Footer)
	}
	if e.Timestamp == "" {
		t.Fatalf("missing timestamp")
	}
}

func TestBuildEmbedLinkPostUsesOutboundURL(t *testing.T) {
	it := post("t3_abc")
	it.Body = ""
	it.LinkURL = "https://example.com/article"

	e := buildEmbed(Event{Kind: EventActivity, Target: watch.Target{Username: "spez"}, Item: it})
	if e.Description != "https://example.com/article" {
		t.Fatalf("description = %q", e.Description)
	}
}

func TestBuildEmbedComment(t *testing.T) {
	it := watch.Item{
		ID:        "t1_def",
		Kind:      watch.KindComment,
		CreatedAt: time.Unix(1700000200, 0).UTC(),
		Community: "programming",
		Body:      "a comment",
		Permalink: "/r/programming/comments/xyz/thread/def/",
	}

	e := buildEmbed(Event{Kind: EventActivity, Target: watch.Target{Username: "spez"}, Item: it})
	if e.Title != "Comment in r/programming" {
		t.Fatalf("title = %q", e.Title)
	}
	if !strings.HasSuffix(e.URL, "?context=5") {
		t.Fatalf("comment URL missing context: %q", e.URL)
	}
	if e.Description != ">>> a comment" {
		t.Fatalf("description = %q", e.Description)
	}
}

func TestBuildEmbedAvailability(t *testing.T) {
	e := buildEmbed(Event{
		Kind:      EventAvailability,
		Target:    watch.Target{Username: "ghost"},
		Available: true,
		At:        time.Unix(1700000300, 0).UTC(),
	})
	if e.Title != "u/ghost is now available" {
		t.Fatalf("title = %q", e.Title)
	}
	if e.URL != "https://reddit.com/user/ghost" {
		t.Fatalf("url = %q", e.URL)
	}
}

func TestExcerptTruncates(t *testing.T) {
	long := strings.Repeat("x", excerptLimit+100)
	got := Excerpt(long)
	if len(got) != excerptLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("excerpt len=%d suffix=%q", len(got), got[len(got)-3:])
	}
	if Excerpt("short") != "short" {
		t.Fatalf("short text must pass through")
	}
}

func TestDiscordSend(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	ev := Event{Kind: EventActivity, Target: watch.Target{Username: "spez"}, Item: post("t3_abc")}
	if err := d.Send(context.Background(), ev); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Title != "Hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestDiscordSendMapsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	err := d.Send(context.Background(), Event{Kind: EventActivity, Target: watch.Target{Username: "spez"}, Item: post("t3_abc")})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected HTTP 429 error, got %v", err)
	}
}

type fakeSender struct {
	texts []string
	err   error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := what.(string); ok {
		f.texts = append(f.texts, s)
	}
	return &tele.Message{}, nil
}

func TestTelegramSend(t *testing.T) {
	fs := &fakeSender{}
	tg := &Telegram{bot: fs, chatID: 42}

	ev := Event{Kind: EventActivity, Target: watch.Target{Username: "spez", Label: "Admin"}, Item: post("t3_abc")}
	if err := tg.Send(context.Background(), ev); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fs.texts) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fs.texts))
	}
	text := fs.texts[0]
	if !strings.Contains(text, "u/spez (Admin)") || !strings.Contains(text, "r/golang") {
		t.Fatalf("unexpected text: %q", text)
	}
	if !strings.Contains(text, "https://reddit.com/r/golang/comments/abc/hello/") {
		t.Fatalf("missing permalink: %q", text)
	}
}

type recordingNotifier struct {
	name string
	sent []Event
	err  error
}

func (r *recordingNotifier) Name() string { return r.name }
func (r *recordingNotifier) Send(ctx context.Context, ev Event) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, ev)
	return nil
}

func TestDispatcherFansOutToAllChannels(t *testing.T) {
	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b", err: errors.New("boom")}
	c := &recordingNotifier{name: "c"}
	d := NewDispatcher([]Notifier{a, b, c}, 100, false, logx.Nop())

	ev := Event{Kind: EventActivity, Target: watch.Target{Username: "spez"}, Item: post("t3_abc")}
	err := d.Send(context.Background(), ev)
	if err == nil {
		t.Fatalf("expected aggregated error from failing channel")
	}
	if len(a.sent) != 1 || len(c.sent) != 1 {
		t.Fatalf("one channel failing must not block others: a=%d c=%d", len(a.sent), len(c.sent))
	}
}

func TestDispatcherDryRunSendsNothing(t *testing.T) {
	a := &recordingNotifier{name: "a"}
	d := NewDispatcher([]Notifier{a}, 100, true, logx.Nop())

	ev := Event{Kind: EventActivity, Target: watch.Target{Username: "spez"}, Item: post("t3_abc")}
	if err := d.Send(context.Background(), ev); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(a.sent) != 0 {
		t.Fatalf("dry run must not deliver, got %d", len(a.sent))
	}
}
