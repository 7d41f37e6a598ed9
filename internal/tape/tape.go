// Package tape は完了した計算の記録（紙テープ）を保持する。
//
// テープはプロセス内にのみ存在し、ディスクには書き込まない。
package tape

import (
	"context"
	"fmt"
	"time"
)

// DefaultLimit は Recent で件数が指定されない場合の件数
const DefaultLimit = 20

// Entry は一件の計算記録
type Entry struct {
	Session    string    `json:"-"`
	Expression string    `json:"expression"`
	Result     string    `json:"result"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Tape は計算記録の保存先
type Tape interface {
	// Append は記録を追加する
	Append(ctx context.Context, entry Entry) error
	// Recent はセッションの新しい記録から最大 limit 件を返す
	Recent(ctx context.Context, session string, limit int) ([]Entry, error)
	// Forget はセッションの記録を全て削除する
	Forget(ctx context.Context, session string) error
	// Close は保存先を解放する
	Close() error
}

// Backend は保存先の種類
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendDuckDB Backend = "duckdb"
)

// Open は指定された保存先のテープを作成する
func Open(backend Backend, perSession int) (Tape, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryTape(perSession), nil
	case BackendDuckDB:
		return NewDuckDBTape(perSession)
	default:
		return nil, fmt.Errorf("unknown tape backend: %q", backend)
	}
}

// normalizeLimit は件数指定を正規化する
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
