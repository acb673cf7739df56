package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// discordSink mirrors log events at or above a minimum level to a Discord
// webhook. Delivery is best-effort: the queue never blocks the caller, and
// over-rate or overflowing events are dropped.
type discordSink struct {
	url      string
	minLevel zerolog.Level
	limiter  *rate.Limiter
	client   *http.Client

	queue chan string
	done  chan struct{}
}

func newDiscordSink(url string, minLevel zerolog.Level, ratePerSec int) *discordSink {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	s := &discordSink{
		url:      url,
		minLevel: minLevel,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		client:   &http.Client{Timeout: 10 * time.Second},
		queue:    make(chan string, 64),
		done:     make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *discordSink) Write(p []byte) (int, error) {
	// Default to info when WriteLevel isn't used.
	return s.WriteLevel(zerolog.InfoLevel, p)
}

func (s *discordSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < s.minLevel {
		return len(p), nil
	}
	if !s.limiter.Allow() {
		return len(p), nil
	}
	msg := formatDiscordJSON(p)
	if msg == "" {
		return len(p), nil
	}
	// Never block core logging.
	select {
	case s.queue <- msg:
	default:
		// drop
	}
	return len(p), nil
}

// close drains queued messages before returning so a short-lived process
// does not exit with undelivered log mirrors.
func (s *discordSink) close() {
	close(s.queue)
	select {
	case <-s.done:
	case <-time.After(15 * time.Second):
	}
}

func (s *discordSink) worker() {
	defer close(s.done)
	for msg := range s.queue {
		s.post(msg)
	}
}

func (s *discordSink) post(msg string) {
	body, err := json.Marshal(map[string]string{"content": "```\n" + msg + "\n```"})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}

func formatDiscordJSON(p []byte) string {
	// Best-effort decode of a zerolog JSON line.
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(p), &m); err != nil {
		// Not JSON; send raw (trimmed), but cap length.
		return truncate(strings.TrimSpace(string(p)), 1800)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)
	if msg == "" {
		msg, _ = m["msg"].(string)
	}

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(lvl))
		b.WriteString("] ")
	}
	b.WriteString(msg)

	for k, v := range m {
		if k == "time" || k == "level" || k == "message" || k == "msg" {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(truncate(fmt.Sprint(v), 600))
	}

	// Discord caps message content at 2000 chars; leave room for the fences.
	return truncate(b.String(), 1800)
}
