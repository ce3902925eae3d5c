package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func timeNowMinusStale() time.Time {
	return time.Now().Add(-lockStaleAfter - time.Minute)
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "alerted.json"), zerolog.Nop())
}

func TestFileStoreRecordThenCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alerted, err := store.AlreadyAlerted(ctx, "2024-06-03", "AAPL")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if alerted {
		t.Fatal("空存储不应命中")
	}

	if err := store.RecordAlerted(ctx, "2024-06-03", []string{"AAPL", "600519"}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	for _, sym := range []string{"AAPL", "600519"} {
		alerted, err := store.AlreadyAlerted(ctx, "2024-06-03", sym)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if !alerted {
			t.Fatalf("%s 已推送却未命中", sym)
		}
	}

	alerted, err = store.AlreadyAlerted(ctx, "2024-06-03", "TSLA")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if alerted {
		t.Fatal("未推送的标的不应命中")
	}
}

func TestFileStoreMergesAcrossRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordAlerted(ctx, "2024-06-03", []string{"AAPL"}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := store.RecordAlerted(ctx, "2024-06-03", []string{"TSLA", "AAPL"}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	for _, sym := range []string{"AAPL", "TSLA"} {
		alerted, _ := store.AlreadyAlerted(ctx, "2024-06-03", sym)
		if !alerted {
			t.Fatalf("两轮写入应合并: %s 未命中", sym)
		}
	}
}

func TestFileStoreDateRollover(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordAlerted(ctx, "2024-06-03", []string{"AAPL"}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	// Next day: yesterday's entry reads as empty and the first write replaces it.
	alerted, _ := store.AlreadyAlerted(ctx, "2024-06-04", "AAPL")
	if alerted {
		t.Fatal("跨天后昨日记录不应命中")
	}

	if err := store.RecordAlerted(ctx, "2024-06-04", []string{"TSLA"}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	alerted, _ = store.AlreadyAlerted(ctx, "2024-06-04", "TSLA")
	if !alerted {
		t.Fatal("新一天的写入应命中")
	}
	alerted, _ = store.AlreadyAlerted(ctx, "2024-06-03", "AAPL")
	if alerted {
		t.Fatal("文件只保留当前日期, 旧日期应读空")
	}
}

func TestFileStoreCorruptFileTreatedEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerted.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("准备损坏文件失败: %v", err)
	}

	store := NewFileStore(path, zerolog.Nop())
	ctx := context.Background()

	alerted, err := store.AlreadyAlerted(ctx, "2024-06-03", "AAPL")
	if err != nil {
		t.Fatalf("损坏文件应视为空而非报错: %v", err)
	}
	if alerted {
		t.Fatal("损坏文件不应命中")
	}

	if err := store.RecordAlerted(ctx, "2024-06-03", []string{"AAPL"}); err != nil {
		t.Fatalf("损坏文件应可被覆盖: %v", err)
	}
	alerted, _ = store.AlreadyAlerted(ctx, "2024-06-03", "AAPL")
	if !alerted {
		t.Fatal("覆盖后应命中")
	}
}

func TestFileStoreEmptyRecordNoop(t *testing.T) {
	store := newTestStore(t)
	if err := store.RecordAlerted(context.Background(), "2024-06-03", nil); err != nil {
		t.Fatalf("空集合写入应为 no-op: %v", err)
	}
	if _, err := os.Stat(store.path); !os.IsNotExist(err) {
		t.Fatal("no-op 不应创建文件")
	}
}

func TestFileStoreRemovesStaleLock(t *testing.T) {
	store := newTestStore(t)
	lockPath := store.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatalf("准备目录失败: %v", err)
	}
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatalf("准备锁文件失败: %v", err)
	}
	old := timeNowMinusStale()
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatalf("回拨锁文件时间失败: %v", err)
	}

	if err := store.RecordAlerted(context.Background(), "2024-06-03", []string{"AAPL"}); err != nil {
		t.Fatalf("过期锁应被清除后继续写入: %v", err)
	}
}
