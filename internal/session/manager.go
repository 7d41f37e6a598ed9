package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/security"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

// DefaultTTL は操作の無いセッションを破棄するまでの時間
const DefaultTTL = 30 * time.Minute

// ErrNotFound はセッションが存在しない場合に返される
var ErrNotFound = errors.New("session not found")

// Manager はセッションの作成、入力の適用、期限切れの破棄を行う
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	tape  tape.Tape
	ttl   time.Duration
	debug bool
	now   func() time.Time
}

// NewManager は新しいセッションマネージャーを作成する
func NewManager(tp tape.Tape, ttl time.Duration, debug bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		tape:     tp,
		ttl:      ttl,
		debug:    debug,
		now:      time.Now,
	}
}

// Create は新しいセッションを作成する
func (m *Manager) Create() (*Session, error) {
	id, err := security.NewID()
	if err != nil {
		return nil, err
	}

	s := newSession(id, m.now())

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if m.debug {
		log.Printf("🧮 Session created: %s", id)
	}
	return s, nil
}

// Get はセッションを取得し、最終利用時刻を更新する
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// GetOrCreate は既存のセッションを返す。無ければ新しく作成する
func (m *Manager) GetOrCreate(id string) (*Session, bool, error) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false, nil
		}
	}
	s, err := m.Create()
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Apply はセッションに入力イベントを適用する
//
// 計算が成功した場合は式と結果をテープに記録する。記録の失敗は入力の失敗とはしない。
func (m *Manager) Apply(ctx context.Context, id string, ev calculator.Event) (calculator.Snapshot, error) {
	s, ok := m.Get(id)
	if !ok {
		return calculator.Snapshot{}, ErrNotFound
	}
	return m.applyTo(ctx, s, ev)
}

// applyTo は取得済みのセッションに入力イベントを適用する
//
// 記録はセッションのロック内で行うため、Sweep がテープを消した後に書き込むことはない。
func (m *Manager) applyTo(ctx context.Context, s *Session, ev calculator.Event) (calculator.Snapshot, error) {
	snap, ok := s.apply(ev, m.now(), func(snap calculator.Snapshot) {
		if snap.Trace == "" || m.tape == nil {
			return
		}
		entry := tape.Entry{
			Session:    s.ID,
			Expression: snap.Trace,
			Result:     snap.Display,
			RecordedAt: m.now(),
		}
		if err := m.tape.Append(ctx, entry); err != nil {
			log.Printf("Warning: failed to record calculation: %v", err)
		}
	})
	if !ok {
		return calculator.Snapshot{}, ErrNotFound
	}

	if m.debug {
		log.Printf("🧮 %s %s(%s) -> %q", s.ID, ev.Kind, ev.Value, snap.Display)
	}
	return snap, nil
}

// Snapshot はセッションの現在の描画情報を返す
func (m *Manager) Snapshot(id string) (calculator.Snapshot, error) {
	s, ok := m.Get(id)
	if !ok {
		return calculator.Snapshot{}, ErrNotFound
	}
	return s.Snapshot(), nil
}

// Recent はセッションの計算記録を返す
func (m *Manager) Recent(ctx context.Context, id string, limit int) ([]tape.Entry, error) {
	if _, ok := m.Get(id); !ok {
		return nil, ErrNotFound
	}
	if m.tape == nil {
		return []tape.Entry{}, nil
	}
	return m.tape.Recent(ctx, id, limit)
}

// Subscribe はセッションの描画更新を購読する
func (m *Manager) Subscribe(id, clientID string) (<-chan *Update, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.subscribe(clientID), nil
}

// Unsubscribe は購読を停止する
func (m *Manager) Unsubscribe(id, clientID string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.unsubscribe(clientID)
	}
}

// Len はセッション数を返す
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep は期限切れのセッションを破棄し、破棄した数を返す
//
// 購読中のクライアントがいるセッションは破棄しない。
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.ttl)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.expireIfIdle(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.closeSubscribers()
		if m.tape != nil {
			if err := m.tape.Forget(ctx, s.ID); err != nil {
				log.Printf("Warning: failed to forget tape of expired session: %v", err)
			}
		}
	}

	if m.debug && len(expired) > 0 {
		log.Printf("🧹 Expired %d session(s)", len(expired))
	}
	return len(expired)
}

// Run は ctx が終了するまで定期的に Sweep を実行する
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Close は全てのセッションを破棄する
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.closeSubscribers()
	}
}
