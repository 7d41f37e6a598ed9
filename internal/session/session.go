package session

import (
	"sync"
	"time"

	"github.com/y-hirakaw/webcalc/internal/calculator"
)

// UpdateTypeSnapshot は描画情報の更新イベント
const UpdateTypeSnapshot = "snapshot"

// Update は購読者に送るリアルタイム更新イベント
type Update struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Session は一つの電卓UIに対応する状態
type Session struct {
	ID string

	// mu は入力イベントを一件ずつ処理するためのロック
	mu       sync.Mutex
	machine  *calculator.Machine
	lastSeen time.Time
	expired  bool

	// リアルタイム更新用
	subscribers map[string]chan *Update
	subsMutex   sync.RWMutex
}

// newSession は新しいセッションを作成する（初期状態の描画を含む）
func newSession(id string, now time.Time) *Session {
	s := &Session{
		ID:          id,
		lastSeen:    now,
		subscribers: make(map[string]chan *Update),
	}
	s.machine = calculator.NewMachine(s.broadcastSnapshot)
	return s
}

// Snapshot は現在の描画情報を返す
func (s *Session) Snapshot() calculator.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// apply はイベントを適用し、ロックを保持したまま record を呼ぶ
//
// 期限切れのセッションには適用せず false を返す。
func (s *Session) apply(ev calculator.Event, now time.Time, record func(calculator.Snapshot)) (calculator.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return calculator.Snapshot{}, false
	}
	s.lastSeen = now
	snap := s.machine.Apply(ev)
	if record != nil {
		record(snap)
	}
	return snap, true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// expireIfIdle は cutoff より前から使われておらず購読者もいなければ期限切れにする
func (s *Session) expireIfIdle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return true
	}
	if s.subscriberCount() > 0 || !s.lastSeen.Before(cutoff) {
		return false
	}
	s.expired = true
	return true
}

// subscribe はリアルタイム更新を購読する
func (s *Session) subscribe(clientID string) <-chan *Update {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()

	ch := make(chan *Update, 100)
	s.subscribers[clientID] = ch
	return ch
}

// unsubscribe はリアルタイム更新を停止する
func (s *Session) unsubscribe(clientID string) {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()

	if ch, exists := s.subscribers[clientID]; exists {
		close(ch)
		delete(s.subscribers, clientID)
	}
}

// closeSubscribers は全ての購読を停止する
func (s *Session) closeSubscribers() {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()

	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// subscriberCount は購読者数を返す
func (s *Session) subscriberCount() int {
	s.subsMutex.RLock()
	defer s.subsMutex.RUnlock()
	return len(s.subscribers)
}

// broadcastSnapshot は電卓の描画コールバック。全購読者に描画情報を送る
func (s *Session) broadcastSnapshot(snap calculator.Snapshot) {
	s.broadcast(&Update{
		Type:      UpdateTypeSnapshot,
		Timestamp: time.Now(),
		Data:      snap,
	})
}

// broadcast は全購読者にイベントを送信する
func (s *Session) broadcast(update *Update) {
	s.subsMutex.RLock()
	defer s.subsMutex.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// バッファが満杯の場合はスキップ
		}
	}
}
