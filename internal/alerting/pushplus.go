package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PushPlusNotifier 通过 PushPlus 推送微信消息。
type PushPlusNotifier struct {
	token    string
	template string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewPushPlusNotifier 构造 PushPlus 告警器。
func NewPushPlusNotifier(token, template, baseURL string, timeout time.Duration, logger zerolog.Logger) *PushPlusNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://www.pushplus.plus"
	}
	if template == "" {
		template = "markdown"
	}

	return &PushPlusNotifier{
		token:    token,
		template: template,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_pushplus").Logger(),
	}
}

func (n *PushPlusNotifier) Name() string { return "pushplus" }

// Deliver 调用 /send 接口推送消息，code==200 视为成功。
func (n *PushPlusNotifier) Deliver(ctx context.Context, title, body string) error {
	payload := map[string]string{
		"token":    n.token,
		"title":    title,
		"content":  body,
		"template": n.template,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pushplus payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/send", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create pushplus request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushplus request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushplus 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode pushplus response: %w", err)
	}
	if result.Code != 200 {
		return fmt.Errorf("pushplus 返回 code=%d msg=%s", result.Code, result.Msg)
	}

	n.logger.Info().Str("title", title).Msg("告警已发送 (PushPlus)")
	return nil
}

var _ Notifier = (*PushPlusNotifier)(nil)
