package alerting

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier 定义告警输送接口：投递一条格式化好的聚合消息。
// 投递失败由调用方记录日志，不重试、不中断本轮扫描。
type Notifier interface {
	Name() string
	Deliver(ctx context.Context, title, body string) error
}

// ConsoleNotifier 在未配置任何推送通道时把消息打到日志，
// 保证评估逻辑在本地也能完整跑通。
type ConsoleNotifier struct {
	logger zerolog.Logger
}

// NewConsoleNotifier 构造控制台降级通道。
func NewConsoleNotifier(logger zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger.With().Str("component", "alert_console").Logger()}
}

func (n *ConsoleNotifier) Name() string { return "console" }

// Deliver 把标题和正文原样写入日志。
func (n *ConsoleNotifier) Deliver(_ context.Context, title, body string) error {
	n.logger.Info().Str("title", title).Msg("告警（控制台模式）\n" + body)
	return nil
}

var _ Notifier = (*ConsoleNotifier)(nil)
