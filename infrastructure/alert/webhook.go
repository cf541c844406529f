package alert

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var levelRank = map[Level]int{
	LevelInfo:     0,
	LevelWarning:  1,
	LevelError:    2,
	LevelCritical: 3,
}

// ParseLevel 解析配置里的级别，空串为 WARNING。
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if l == "" {
		return LevelWarning, nil
	}
	if _, ok := levelRank[l]; !ok {
		return LevelWarning, fmt.Errorf("unknown alert level %q", s)
	}
	return l, nil
}

// AtLeast 级别不低于 min。
func (l Level) AtLeast(min Level) bool { return levelRank[l] >= levelRank[min] }

// WebhookChannel 以 Slack 兼容的 {"text": ...} 格式 POST 告警，低于 MinLevel 的丢弃。
type WebhookChannel struct {
	url      string
	minLevel Level
	client   *http.Client
}

func NewWebhookChannel(url string, minLevel Level, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if minLevel == "" {
		minLevel = LevelWarning
	}
	return &WebhookChannel{url: url, minLevel: minLevel, client: &http.Client{Timeout: timeout}}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(alert Alert) error {
	if !alert.Level.AtLeast(c.minLevel) {
		return nil
	}
	body, err := json.Marshal(map[string]string{"text": formatText(alert)})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// formatText 形如 "[WARNING] hedge sent delta=15 side=SELL"，字段按名字排序。
func formatText(alert Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", alert.Level, alert.Message)
	keys := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, alert.Fields[k])
	}
	return b.String()
}
