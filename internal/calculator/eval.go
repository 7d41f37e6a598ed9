package calculator

import (
	"errors"
	"fmt"
	"math"
)

// ErrDivisionByZero は除数が0の除算で返される
var ErrDivisionByZero = errors.New("division by zero")

// Evaluate は二項演算を実行する
//
// 剰余は被除数の符号に従う（切り捨て除算の余り）。
func Evaluate(op Operator, a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	case OpModulo:
		return math.Mod(a, b), nil
	default:
		return 0, fmt.Errorf("unsupported operator: %v", op)
	}
}
