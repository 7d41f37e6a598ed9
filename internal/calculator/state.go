package calculator

import (
	"math"
	"strings"
)

// ErrorToken はエラー時に表示される文字列
const ErrorToken = "Error"

// State は電卓の入力状態
//
// State は値として扱い、各操作は新しい State を返す。
type State struct {
	First       string
	Second      string
	Operator    Operator
	ResultShown bool

	// err は直前の評価の失敗（ErrDivisionByZero）を保持する
	err error
}

// Snapshot は表示層に渡す描画情報
type Snapshot struct {
	Display  string `json:"primaryDisplay"`
	Operator string `json:"operatorSymbol"`
	Preview  string `json:"expressionPreview"`
	// Trace は計算成功直後のスナップショットにのみ設定される
	Trace string `json:"expressionTrace,omitempty"`
}

// Err は直前の評価で発生したエラーを返す
func (s State) Err() error {
	return s.err
}

// current は入力中のオペランドを返す
func (s State) current() string {
	if s.Operator != OpNone {
		return s.Second
	}
	return s.First
}

// setCurrent は入力中のオペランドを置き換える
func (s State) setCurrent(v string) State {
	if s.Operator != OpNone {
		s.Second = v
	} else {
		s.First = v
	}
	return s
}

// visible は表示中のオペランドを返す
func (s State) visible() string {
	if s.Operator != OpNone && s.Second != "" {
		return s.Second
	}
	return s.First
}

// Render は状態から描画情報を生成する
func (s State) Render() Snapshot {
	display := s.visible()
	if s.err != nil {
		display = ErrorToken
	} else if display == "" {
		display = "0"
	}

	parts := make([]string, 0, 3)
	if s.First != "" {
		parts = append(parts, s.First)
	}
	if s.Operator != OpNone {
		parts = append(parts, s.Operator.Symbol())
	}
	if s.Second != "" {
		parts = append(parts, s.Second)
	}

	return Snapshot{
		Display:  display,
		Operator: s.Operator.Symbol(),
		Preview:  strings.Join(parts, " "),
	}
}

// Clear は全ての入力を消去する
func (s State) Clear() (State, Snapshot) {
	next := State{}
	return next, next.Render()
}

// Digit は数字または小数点を入力中のオペランドに追加する
func (s State) Digit(d string) (State, Snapshot) {
	if !isDigit(d) {
		return s, s.Render()
	}

	if s.ResultShown && s.Operator == OpNone {
		s.First = ""
		s.ResultShown = false
		s.err = nil
	}

	cur := s.current()
	if d == "." && strings.Contains(cur, ".") {
		return s, s.Render()
	}
	s = s.setCurrent(cur + d)
	return s, s.Render()
}

// ChooseOperator は演算子を設定する
//
// 演算子と第二オペランドが既にある場合は先に計算する。
func (s State) ChooseOperator(op Operator) (State, Snapshot) {
	if s.First == "" || !op.Valid() {
		return s, s.Render()
	}

	if s.Operator != OpNone && s.Second != "" {
		s, _ = s.Calculate()
		if s.err != nil {
			return s, s.Render()
		}
	}

	s.Operator = op
	s.ResultShown = false
	return s, s.Render()
}

// Calculate は保留中の式を評価する
func (s State) Calculate() (State, Snapshot) {
	if s.First == "" || s.Operator == OpNone || s.Second == "" {
		return s, s.Render()
	}
	a, okA := ParseNumber(s.First)
	b, okB := ParseNumber(s.Second)
	if !okA || !okB {
		return s, s.Render()
	}

	trace := s.First + " " + s.Operator.Symbol() + " " + s.Second + " ="
	result, err := Evaluate(s.Operator, a, b)
	if err != nil {
		next := State{ResultShown: true, err: err}
		return next, next.Render()
	}

	next := State{First: FormatNumber(result), ResultShown: true}
	snap := next.Render()
	snap.Trace = trace
	return next, snap
}

// Square は表示中のオペランドを二乗する
func (s State) Square() (State, Snapshot) {
	operand := s.visible()
	if operand == "" {
		operand = "0"
	}
	v, ok := ParseNumber(operand)
	if !ok {
		v = math.NaN()
	}

	next := State{First: FormatNumber(v * v), ResultShown: true}
	return next, next.Render()
}

// Backspace は入力中のオペランドの末尾を一文字削除する
func (s State) Backspace() (State, Snapshot) {
	if s.ResultShown && s.Operator == OpNone {
		return s.Clear()
	}

	cur := s.current()
	if cur == "" {
		return s, s.Render()
	}
	s = s.setCurrent(cur[:len(cur)-1])
	return s, s.Render()
}

// isDigit は入力可能な一文字かどうかを判定する
func isDigit(d string) bool {
	if len(d) != 1 {
		return false
	}
	return d == "." || (d[0] >= '0' && d[0] <= '9')
}
