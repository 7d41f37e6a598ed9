package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

// fakeClock はテスト用の時計
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *fakeClock, tape.Tape) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	tp := tape.NewMemoryTape(10)
	m := NewManager(tp, ttl, false)
	m.now = clock.Now
	return m, clock, tp
}

func applyTokens(t *testing.T, m *Manager, id, keys string) calculator.Snapshot {
	t.Helper()
	events, err := calculator.ParseTokens(keys)
	if err != nil {
		t.Fatalf("ParseTokens(%q) error = %v", keys, err)
	}
	var snap calculator.Snapshot
	for _, ev := range events {
		snap, err = m.Apply(context.Background(), id, ev)
		if err != nil {
			t.Fatalf("Apply(%+v) error = %v", ev, err)
		}
	}
	return snap
}

func TestManagerApplyRecordsTape(t *testing.T) {
	m, _, tp := newTestManager(t, time.Minute)
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	snap := applyTokens(t, m, s.ID, "12 + 30 =")
	if snap.Display != "42" || snap.Trace != "12 + 30 =" {
		t.Errorf("snapshot = %s", spew.Sdump(snap))
	}

	// 計算にならない入力は記録しない
	applyTokens(t, m, s.ID, "5 / 0 = 3 sq")

	entries, err := tp.Recent(context.Background(), s.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Expression != "12 + 30 =" || entries[0].Result != "42" {
		t.Errorf("tape = %s", spew.Sdump(entries))
	}

	recent, err := m.Recent(context.Background(), s.ID, 0)
	if err != nil || len(recent) != 1 {
		t.Errorf("Recent() = %v, %v", recent, err)
	}
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	a, _ := m.Create()
	b, _ := m.Create()
	if a.ID == b.ID {
		t.Fatal("session IDs should differ")
	}

	applyTokens(t, m, a.ID, "7 *")
	applyTokens(t, m, b.ID, "3")

	snapA, _ := m.Snapshot(a.ID)
	snapB, _ := m.Snapshot(b.ID)
	if snapA.Preview != "7 ×" || snapB.Display != "3" {
		t.Errorf("a = %+v, b = %+v", snapA, snapB)
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	ctx := context.Background()

	if _, err := m.Apply(ctx, "missing", calculator.Event{Kind: calculator.EventClear}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Apply error = %v, want ErrNotFound", err)
	}
	if _, err := m.Snapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Snapshot error = %v, want ErrNotFound", err)
	}
	if _, err := m.Subscribe("missing", "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Subscribe error = %v, want ErrNotFound", err)
	}
	if _, err := m.Recent(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Recent error = %v, want ErrNotFound", err)
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)

	s, created, err := m.GetOrCreate("")
	if err != nil || !created {
		t.Fatalf("GetOrCreate(\"\") = %v, %v", created, err)
	}
	again, created, err := m.GetOrCreate(s.ID)
	if err != nil || created || again != s {
		t.Errorf("GetOrCreate(existing) = %p, %v, %v", again, created, err)
	}
	_, created, _ = m.GetOrCreate("stale")
	if !created {
		t.Error("GetOrCreate(stale) should create a new session")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManagerBroadcastsToSubscribers(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	s, _ := m.Create()

	tab1, err := m.Subscribe(s.ID, "tab1")
	if err != nil {
		t.Fatal(err)
	}
	tab2, _ := m.Subscribe(s.ID, "tab2")

	applyTokens(t, m, s.ID, "9")

	for name, ch := range map[string]<-chan *Update{"tab1": tab1, "tab2": tab2} {
		select {
		case update := <-ch:
			snap, ok := update.Data.(calculator.Snapshot)
			if update.Type != UpdateTypeSnapshot || !ok || snap.Display != "9" {
				t.Errorf("%s got %s", name, spew.Sdump(update))
			}
		default:
			t.Errorf("%s received no update", name)
		}
	}

	m.Unsubscribe(s.ID, "tab1")
	if _, open := <-tab1; open {
		t.Error("tab1 channel should be closed")
	}
	// 二重の購読解除は安全
	m.Unsubscribe(s.ID, "tab1")
	m.Unsubscribe("missing", "tab1")
}

func TestManagerSweep(t *testing.T) {
	m, clock, tp := newTestManager(t, 10*time.Minute)
	ctx := context.Background()

	idle, _ := m.Create()
	active, _ := m.Create()
	watched, _ := m.Create()
	applyTokens(t, m, idle.ID, "1 + 1 =")
	if _, err := m.Subscribe(watched.ID, "tab"); err != nil {
		t.Fatal(err)
	}

	clock.Advance(6 * time.Minute)
	applyTokens(t, m, active.ID, "2")
	clock.Advance(6 * time.Minute)

	if n := m.Sweep(ctx); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := m.Get(idle.ID); ok {
		t.Error("idle session should be expired")
	}
	if _, ok := m.Get(active.ID); !ok {
		t.Error("active session should survive")
	}
	if _, ok := m.Get(watched.ID); !ok {
		t.Error("subscribed session should survive")
	}

	entries, _ := tp.Recent(ctx, idle.ID, 10)
	if len(entries) != 0 {
		t.Errorf("tape of expired session = %s", spew.Sdump(entries))
	}
}

func TestManagerApplyAfterSweepDoesNotRecord(t *testing.T) {
	m, clock, tp := newTestManager(t, time.Minute)
	ctx := context.Background()

	created, _ := m.Create()
	applyTokens(t, m, created.ID, "6 / 4")

	// Apply が Get を終えた直後に Sweep が走った場合
	s, ok := m.Get(created.ID)
	if !ok {
		t.Fatal("session should exist")
	}
	clock.Advance(2 * time.Minute)
	if n := m.Sweep(ctx); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}

	_, err := m.applyTo(ctx, s, calculator.Event{Kind: calculator.EventEquals})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("applyTo() error = %v, want ErrNotFound", err)
	}
	entries, _ := tp.Recent(ctx, created.ID, 10)
	if len(entries) != 0 {
		t.Errorf("tape of expired session = %s", spew.Sdump(entries))
	}
}

func TestManagerRunStopsWithContext(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestManagerClose(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	s, _ := m.Create()
	ch, _ := m.Subscribe(s.ID, "tab")
	m.Close()
	if _, open := <-ch; open {
		t.Error("subscriber channel should be closed")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestManagerConcurrentApply(t *testing.T) {
	m, _, _ := newTestManager(t, time.Minute)
	s, _ := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Apply(context.Background(), s.ID, calculator.Event{Kind: calculator.EventDigit, Value: "1"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	snap, _ := m.Snapshot(s.ID)
	if len(snap.Display) != 50 {
		t.Errorf("len(Display) = %d, want 50", len(snap.Display))
	}
}
