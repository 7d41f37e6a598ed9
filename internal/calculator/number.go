package calculator

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// FormatNumber は数値を表示用の文字列に変換する
//
// 1e-6 <= |v| < 1e21 の範囲は通常表記、それ以外は指数表記（例: 1e+21, 1.5e-7）。
// 桁数は再解析で同じ値に戻る最短の桁数を使う。
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		// -0 も "0"
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	// "d.ddde±XX" を "d.ddde±X" に整える
	s := strconv.FormatFloat(v, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	n, err := strconv.Atoi(exp)
	if err != nil {
		return s
	}
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}
	return mantissa + "e" + sign + strconv.Itoa(n)
}

// ParseNumber はオペランド文字列を数値として解析する
//
// 範囲外の値は ±Inf として受け入れる。"Infinity" や "NaN" などの
// 計算結果のトークンもそのまま解析できる。
func ParseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	return v, true
}
