package calculator

import (
	"errors"
	"fmt"
	"strings"
)

// EventKind は入力イベントの種類
type EventKind string

const (
	EventDigit     EventKind = "digit"
	EventOperator  EventKind = "operator"
	EventEquals    EventKind = "equals"
	EventClear     EventKind = "clear"
	EventBackspace EventKind = "backspace"
	EventSquare    EventKind = "square"
)

// Event は表示層から受け取る入力イベント
type Event struct {
	Kind  EventKind `json:"type"`
	Value string    `json:"value,omitempty"`
}

var (
	// ErrUnknownEvent は不明なイベント種別
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidDigit は数字でも小数点でもない値
	ErrInvalidDigit = errors.New("invalid digit")
	// ErrUnknownOperator は不明な演算子
	ErrUnknownOperator = errors.New("unknown operator")
)

// ParseEvent は外部から受け取った種別と値を検証してイベントを作成する
func ParseEvent(kind, value string) (Event, error) {
	switch EventKind(strings.ToLower(strings.TrimSpace(kind))) {
	case EventDigit:
		if !isDigit(value) {
			return Event{}, fmt.Errorf("%w: %q", ErrInvalidDigit, value)
		}
		return Event{Kind: EventDigit, Value: value}, nil
	case EventOperator:
		op, ok := ParseOperator(value)
		if !ok {
			return Event{}, fmt.Errorf("%w: %q", ErrUnknownOperator, value)
		}
		return Event{Kind: EventOperator, Value: op.String()}, nil
	case EventEquals:
		return Event{Kind: EventEquals}, nil
	case EventClear:
		return Event{Kind: EventClear}, nil
	case EventBackspace:
		return Event{Kind: EventBackspace}, nil
	case EventSquare:
		return Event{Kind: EventSquare}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
}

// tokenEvents は端末入力のキーワード
var tokenEvents = map[string]EventKind{
	"=":         EventEquals,
	"equals":    EventEquals,
	"c":         EventClear,
	"ac":        EventClear,
	"clear":     EventClear,
	"bs":        EventBackspace,
	"del":       EventBackspace,
	"backspace": EventBackspace,
	"sq":        EventSquare,
	"x²":        EventSquare,
	"square":    EventSquare,
}

// ParseToken は端末入力の一語をイベント列に変換する
//
// "12.5" のような複数桁の語は一桁ずつのイベントに展開される。
func ParseToken(token string) ([]Event, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, nil
	}
	if kind, ok := tokenEvents[token]; ok {
		return []Event{{Kind: kind}}, nil
	}
	if op, ok := ParseOperator(token); ok {
		return []Event{{Kind: EventOperator, Value: op.String()}}, nil
	}

	events := make([]Event, 0, len(token))
	for _, r := range token {
		d := string(r)
		if !isDigit(d) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, token)
		}
		events = append(events, Event{Kind: EventDigit, Value: d})
	}
	return events, nil
}

// ParseTokens は空白区切りの入力をイベント列に変換する
func ParseTokens(line string) ([]Event, error) {
	var events []Event
	for _, field := range strings.Fields(line) {
		evs, err := ParseToken(field)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

// Apply はイベントを状態に適用する
func (s State) Apply(ev Event) (State, Snapshot) {
	switch ev.Kind {
	case EventDigit:
		return s.Digit(ev.Value)
	case EventOperator:
		op, _ := ParseOperator(ev.Value)
		return s.ChooseOperator(op)
	case EventEquals:
		return s.Calculate()
	case EventClear:
		return s.Clear()
	case EventBackspace:
		return s.Backspace()
	case EventSquare:
		return s.Square()
	default:
		return s, s.Render()
	}
}
