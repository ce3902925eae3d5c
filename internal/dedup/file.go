package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const (
	lockRetryInterval = 50 * time.Millisecond
	lockTimeout       = 5 * time.Second
	lockStaleAfter    = 30 * time.Second
)

// fileEntry is the single persisted record: one calendar day, one symbol set.
type fileEntry struct {
	Date    string   `json:"date"`
	Symbols []string `json:"symbols"`
}

// FileStore keeps the alerted set in a small JSON file. It is the fallback
// when no database is configured. Cross-process safety comes from a lock
// file around the read-modify-write, and the payload itself is replaced via
// temp-file rename so readers never see a partial write.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore builds a file-backed store at the given path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "dedup_file").Logger(),
	}
}

// AlreadyAlerted reports whether the symbol is in the stored set for day.
// A missing, unreadable, or stale-dated file all read as empty.
func (s *FileStore) AlreadyAlerted(_ context.Context, day, symbol string) (bool, error) {
	entry := s.load(day)
	for _, stored := range entry.Symbols {
		if stored == symbol {
			return true, nil
		}
	}
	return false, nil
}

// RecordAlerted merges symbols into the day's set under the file lock.
func (s *FileStore) RecordAlerted(_ context.Context, day string, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	entry := s.load(day)
	merged := make(map[string]struct{}, len(entry.Symbols)+len(symbols))
	for _, sym := range entry.Symbols {
		merged[sym] = struct{}{}
	}
	for _, sym := range symbols {
		merged[sym] = struct{}{}
	}

	entry.Date = day
	entry.Symbols = entry.Symbols[:0]
	for sym := range merged {
		entry.Symbols = append(entry.Symbols, sym)
	}
	sort.Strings(entry.Symbols)

	return s.write(entry)
}

// load reads the entry, treating any problem or a date mismatch as empty.
func (s *FileStore) load(day string) fileEntry {
	empty := fileEntry{Date: day}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("读取去重文件失败，视为空")
		}
		return empty
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("去重文件损坏，视为空")
		return empty
	}
	if entry.Date != day {
		return empty
	}
	return entry
}

func (s *FileStore) write(entry fileEntry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dedup dir: %w", err)
		}
	}

	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dedup entry: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write dedup temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace dedup file: %w", err)
	}
	return nil
}

func (s *FileStore) acquireLock() (func(), error) {
	lockPath := s.path + ".lock"
	deadline := time.Now().Add(lockTimeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dedup lock: %w", err)
		}

		// A lock left behind by a crashed run must not wedge the store.
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			s.logger.Warn().Str("path", lockPath).Msg("移除过期的去重锁文件")
			_ = os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("dedup lock held too long: %s", lockPath)
		}
		time.Sleep(lockRetryInterval)
	}
}

var _ Store = (*FileStore)(nil)
