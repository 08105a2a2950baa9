package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reframe/internal/config"
)

const userAgent = "Reframe/0.1.0"

// Service defines the notification surface exposed to the CLI commands.
type Service interface {
	NotifyConversionCompleted(ctx context.Context, inputName string, outputBytes int64, elapsed time.Duration) error
	NotifyConversionTimedOut(ctx context.Context, inputName string, elapsed time.Duration) error
	NotifyDiagnosticsCompleted(ctx context.Context, succeeded, failed, timedOut int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	endpoint := topic
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://ntfy.sh/" + endpoint
	}

	return &ntfyService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, inputName string, outputBytes int64, elapsed time.Duration) error {
	inputName = strings.TrimSpace(inputName)
	data := payload{
		title:   "Reframe - Conversion Complete",
		message: fmt.Sprintf("Converted %s (%d bytes) in %s", inputName, outputBytes, elapsed.Round(time.Second)),
		tags:    []string{"reframe", "convert", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionTimedOut(ctx context.Context, inputName string, elapsed time.Duration) error {
	inputName = strings.TrimSpace(inputName)
	data := payload{
		title:    "Reframe - Conversion Timed Out",
		message:  fmt.Sprintf("No forward progress converting %s after %s", inputName, elapsed.Round(time.Second)),
		tags:     []string{"reframe", "convert", "timeout"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDiagnosticsCompleted(ctx context.Context, succeeded, failed, timedOut int) error {
	total := succeeded + failed + timedOut
	var title string
	if failed == 0 && timedOut == 0 {
		title = "Reframe - Diagnostics Complete"
	} else {
		title = "Reframe - Diagnostics Complete (with problems)"
	}
	data := payload{
		title: title,
		message: fmt.Sprintf("%d trials: %d succeeded, %d failed, %d timed out",
			total, succeeded, failed, timedOut),
		tags: []string{"reframe", "diagnostics", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Reframe - Error",
		message:  builder.String(),
		tags:     []string{"reframe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reframe - Test",
		message:  "Notification system test",
		tags:     []string{"reframe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (noopService) NotifyConversionCompleted(context.Context, string, int64, time.Duration) error {
	return nil
}
func (noopService) NotifyConversionTimedOut(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifyDiagnosticsCompleted(context.Context, int, int, int) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                      { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
