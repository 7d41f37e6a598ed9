package calculator

// RenderFunc は状態が変化するたびに呼ばれる描画コールバック
type RenderFunc func(Snapshot)

// Machine は一つの電卓UIに対応する状態機械
//
// Machine は並行利用に対して安全ではない。呼び出し側でイベントを直列化すること。
type Machine struct {
	state  State
	render RenderFunc
}

// NewMachine は新しい状態機械を作成し、初期状態を描画する
func NewMachine(render RenderFunc) *Machine {
	m := &Machine{render: render}
	m.Clear()
	return m
}

// State は現在の状態を返す
func (m *Machine) State() State {
	return m.state
}

// Snapshot は現在の状態の描画情報を返す（コールバックは呼ばない）
func (m *Machine) Snapshot() Snapshot {
	return m.state.Render()
}

// Clear は全ての入力を消去する
func (m *Machine) Clear() Snapshot {
	return m.commit(m.state.Clear())
}

// Digit は数字または小数点を入力する
func (m *Machine) Digit(d string) Snapshot {
	return m.commit(m.state.Digit(d))
}

// ChooseOperator は演算子を選択する
func (m *Machine) ChooseOperator(op Operator) Snapshot {
	return m.commit(m.state.ChooseOperator(op))
}

// Calculate は式を評価する
func (m *Machine) Calculate() Snapshot {
	return m.commit(m.state.Calculate())
}

// Square は表示中の値を二乗する
func (m *Machine) Square() Snapshot {
	return m.commit(m.state.Square())
}

// Backspace は一文字削除する
func (m *Machine) Backspace() Snapshot {
	return m.commit(m.state.Backspace())
}

// Apply はイベントを適用する
func (m *Machine) Apply(ev Event) Snapshot {
	return m.commit(m.state.Apply(ev))
}

func (m *Machine) commit(next State, snap Snapshot) Snapshot {
	m.state = next
	if m.render != nil {
		m.render(snap)
	}
	return snap
}
