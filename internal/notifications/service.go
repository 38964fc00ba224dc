package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortsmith/internal/config"
)

const (
	userAgent   = "shortsmith/0.1.0"
	defaultHost = "https://ntfy.sh/"
)

// Event names a pipeline milestone.
type Event string

const (
	EventRecordDone     Event = "record_done"
	EventPublished      Event = "published"
	EventRecordFailed   Event = "record_failed"
	EventBatchCompleted Event = "batch_completed"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys used per event:
//   - record_done: title, outputs (int)
//   - published: title, composition, url
//   - record_failed: title, stage, error
//   - batch_completed: processed, failed (int), duration (time.Duration)
type Payload map[string]any

// Service publishes pipeline events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		topic = defaultHost + strings.TrimLeft(topic, "/")
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRecordDone:     cfg.Notifications.RecordDone,
			EventPublished:      cfg.Notifications.Published,
			EventRecordFailed:   cfg.Notifications.Errors,
			EventBatchCompleted: cfg.Notifications.BatchSummary,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	switch event {
	case EventRecordDone:
		body := fmt.Sprintf("✅ Rendered: %s", p.text("title"))
		if n := p.number("outputs"); n > 0 {
			body = fmt.Sprintf("%s (%d outputs)", body, n)
		}
		return message{title: "Shortsmith - Rendered", body: body, tags: []string{"shortsmith", "render", "completed"}}, true
	case EventPublished:
		body := fmt.Sprintf("📺 Published %s: %s", p.text("composition"), p.text("title"))
		if url := p.text("url"); url != "" {
			body += "\n" + url
		}
		return message{title: "Shortsmith - Published", body: body, tags: []string{"shortsmith", "publish", "completed"}}, true
	case EventRecordFailed:
		var b strings.Builder
		b.WriteString("❌ Failed")
		if title := p.text("title"); title != "" {
			b.WriteString(": ")
			b.WriteString(title)
		}
		if stage := p.text("stage"); stage != "" {
			b.WriteString(" during ")
			b.WriteString(stage)
		}
		if errText := p.text("error"); errText != "" {
			b.WriteString("\n")
			b.WriteString(errText)
		}
		return message{title: "Shortsmith - Error", body: b.String(), tags: []string{"shortsmith", "error", "alert"}, priority: "high"}, true
	case EventBatchCompleted:
		processed, failed := p.number("processed"), p.number("failed")
		duration := p.duration("duration").Round(time.Second)
		title := "Shortsmith - Batch Complete"
		body := fmt.Sprintf("Render pass complete: %d records in %s", processed, duration)
		if failed > 0 {
			title = "Shortsmith - Batch Complete (with errors)"
			body = fmt.Sprintf("Render pass complete: %d succeeded, %d failed in %s", processed, failed, duration)
		}
		return message{title: title, body: body, tags: []string{"shortsmith", "batch", "completed"}}, true
	case EventTest:
		return message{title: "Shortsmith - Test", body: "🧪 Notification system test", tags: []string{"shortsmith", "test"}, priority: "low"}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) time.Duration {
	if d, ok := p[key].(time.Duration); ok && d > 0 {
		return d
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
