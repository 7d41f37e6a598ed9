package tape

import (
	"context"
	"sync"
)

// MemoryTape はセッションごとに固定長で記録を保持するテープ
type MemoryTape struct {
	mu         sync.RWMutex
	perSession int
	entries    map[string][]Entry
}

// NewMemoryTape は新しいメモリテープを作成する
func NewMemoryTape(perSession int) *MemoryTape {
	if perSession <= 0 {
		perSession = DefaultLimit
	}
	return &MemoryTape{
		perSession: perSession,
		entries:    make(map[string][]Entry),
	}
}

// Append は記録を追加し、上限を超えた古い記録を捨てる
func (t *MemoryTape) Append(ctx context.Context, entry Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := append(t.entries[entry.Session], entry)
	if over := len(list) - t.perSession; over > 0 {
		list = append([]Entry(nil), list[over:]...)
	}
	t.entries[entry.Session] = list
	return nil
}

// Recent は新しい順に記録を返す
func (t *MemoryTape) Recent(ctx context.Context, session string, limit int) ([]Entry, error) {
	limit = normalizeLimit(limit)

	t.mu.RLock()
	defer t.mu.RUnlock()

	list := t.entries[session]
	result := make([]Entry, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, list[i])
	}
	return result, nil
}

// Forget はセッションの記録を削除する
func (t *MemoryTape) Forget(ctx context.Context, session string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, session)
	return nil
}

// Close は何もしない
func (t *MemoryTape) Close() error {
	return nil
}
