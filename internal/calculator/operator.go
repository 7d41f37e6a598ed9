package calculator

import "strings"

// Operator は二項演算子の種類
type Operator int

const (
	// OpNone は演算子が未選択であることを表す
	OpNone Operator = iota
	// OpAdd は加算
	OpAdd
	// OpSubtract は減算
	OpSubtract
	// OpMultiply は乗算
	OpMultiply
	// OpDivide は除算
	OpDivide
	// OpModulo は剰余
	OpModulo
)

// operatorNames は演算子の識別名（イベントやJSONで使用）
var operatorNames = map[Operator]string{
	OpAdd:      "add",
	OpSubtract: "subtract",
	OpMultiply: "multiply",
	OpDivide:   "divide",
	OpModulo:   "modulo",
}

// operatorSymbols は演算子の表示記号
var operatorSymbols = map[Operator]string{
	OpAdd:      "+",
	OpSubtract: "-",
	OpMultiply: "×",
	OpDivide:   "÷",
	OpModulo:   "%",
}

// symbolAliases は入力として受け付ける記号
var symbolAliases = map[string]Operator{
	"+": OpAdd,
	"-": OpSubtract,
	"*": OpMultiply,
	"x": OpMultiply,
	"×": OpMultiply,
	"/": OpDivide,
	"÷": OpDivide,
	"%": OpModulo,
}

// String は演算子の識別名を返す
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "none"
}

// Symbol は表示用の記号を返す（未選択の場合は空文字）
func (o Operator) Symbol() string {
	return operatorSymbols[o]
}

// Valid は五つの演算子のいずれかであるかを返す
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// ParseOperator は識別名または記号から演算子を取得する
func ParseOperator(s string) (Operator, bool) {
	s = strings.TrimSpace(s)
	if op, ok := symbolAliases[s]; ok {
		return op, true
	}
	lower := strings.ToLower(s)
	for op, name := range operatorNames {
		if name == lower {
			return op, true
		}
	}
	return OpNone, false
}

// Operators は全ての演算子を定義順に返す
func Operators() []Operator {
	return []Operator{OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo}
}
