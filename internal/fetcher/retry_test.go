package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), RetryPolicy{Attempts: 3}, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("首次成功不应返回错误: %v", err)
	}
	if out != 42 || calls != 1 {
		t.Fatalf("期望一次调用返回 42, 实际 calls=%d out=%d", calls, out)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("第三次成功不应返回错误: %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Fatalf("期望 3 次调用, 实际 calls=%d out=%q", calls, out)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0
	_, err := Do(context.Background(), RetryPolicy{Attempts: 3}, func(context.Context) (int, error) {
		calls++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("应返回最后一次错误, 实际 %v", err)
	}
	if calls != 3 {
		t.Fatalf("期望耗尽 3 次预算, 实际 %d", calls)
	}
}

func TestZeroRetrySingleCall(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), ZeroRetry, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if err == nil {
		t.Fatal("失败应透传")
	}
	if calls != 1 {
		t.Fatalf("ZeroRetry 只应调用一次, 实际 %d", calls)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, RetryPolicy{Attempts: 5, Backoff: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
	}
	if calls != 1 {
		t.Fatalf("取消后不应再重试, 实际调用 %d 次", calls)
	}
}
