package ui

import (
	"fmt"
	"io"

	"github.com/y-hirakaw/webcalc/internal/i18n"
)

// HelpSystem はヘルプとメッセージの表示を提供する
type HelpSystem struct {
	version     string
	appName     string
	out         io.Writer
	errOut      io.Writer
	contextHelp *ContextHelpProvider
}

// NewHelpSystemWithOutput は出力先を指定してヘルプシステムを作成する
func NewHelpSystemWithOutput(appName, version string, out, errOut io.Writer) *HelpSystem {
	return &HelpSystem{
		version:     version,
		appName:     appName,
		out:         out,
		errOut:      errOut,
		contextHelp: NewContextHelpProvider(appName, errOut),
	}
}

// ShowMainHelp はメインヘルプを表示する
func (h *HelpSystem) ShowMainHelp() {
	fmt.Fprintf(h.out, `🧮 %s v%s - Calculator

二つの数の四則演算と剰余、二乗をターミナルから実行します。
Webページと同じ入力規則で動作します。

`, h.appName, h.version)

	h.showUsage()
	h.showCommands()
	h.showTokens()
	h.showExamples()
}

// showUsage は使用方法を表示する
func (h *HelpSystem) showUsage() {
	fmt.Fprintf(h.out, `📖 使用方法:
  %s <command> [options]

`, h.appName)
}

// showCommands はコマンド一覧を表示する
func (h *HelpSystem) showCommands() {
	fmt.Fprintln(h.out, "📋 コマンド一覧:")

	commands := []struct {
		Name        string
		Description string
		Icon        string
	}{
		{"eval", "入力を順に適用して最後の表示を出力", "🧮"},
		{"repl", "一行ずつ入力を適用する対話モード", "⌨️"},
		{"version", "バージョン情報を表示", "ℹ️"},
		{"help", "ヘルプを表示", "❓"},
	}

	for _, cmd := range commands {
		fmt.Fprintf(h.out, "    %s %-10s %s\n", cmd.Icon, cmd.Name, cmd.Description)
	}
	fmt.Fprintln(h.out)
}

// showTokens は入力できる語を表示する
func (h *HelpSystem) showTokens() {
	fmt.Fprintln(h.out, "🔢 入力:")
	fmt.Fprintln(h.out, "    0-9 .            数字と小数点 (12.5 のように続けて書ける)")
	fmt.Fprintln(h.out, "    + - * / %        演算子 (× ÷ x や add, divide なども可)")
	fmt.Fprintln(h.out, "    =                計算")
	fmt.Fprintln(h.out, "    c ac clear       全消去")
	fmt.Fprintln(h.out, "    bs del           一文字削除")
	fmt.Fprintln(h.out, "    sq x²            二乗")
	fmt.Fprintln(h.out)
}

// showExamples は使用例を表示する
func (h *HelpSystem) showExamples() {
	fmt.Fprintln(h.out, "💡 使用例:")

	examples := []struct {
		Command     string
		Description string
	}{
		{h.appName + " eval 12 + 7 =", "19"},
		{h.appName + " eval 9 / 0 =", "Error"},
		{h.appName + " eval --trace 3 sq", "全ての描画を表示"},
		{h.appName + " eval --json 2 x 4 =", "描画情報をJSONで出力"},
		{h.appName + " repl", "対話モード"},
	}

	for _, example := range examples {
		fmt.Fprintf(h.out, "  %s\n", example.Command)
		fmt.Fprintf(h.out, "    → %s\n\n", example.Description)
	}
}

// ShowCommandHelp は特定のコマンドのヘルプを表示する
func (h *HelpSystem) ShowCommandHelp(command string) {
	switch command {
	case "eval":
		fmt.Fprintf(h.out, `🧮 %[1]s eval - 入力を順に適用する

使用方法:
  %[1]s eval [--json] [--trace] <tokens...>

オプション:
  --json    描画情報をJSONで出力
  --trace   初期状態を含む全ての描画を出力

`, h.appName)
	case "repl":
		fmt.Fprintf(h.out, `⌨️  %[1]s repl - 対話モード

使用方法:
  %[1]s repl [--json]

一行ごとに入力を適用し、描画を表示します。
"history" で計算履歴、"quit" または "exit" で終了します。

`, h.appName)
	case "version":
		fmt.Fprintf(h.out, "ℹ️  %s version - バージョン情報を表示\n", h.appName)
	case "help":
		fmt.Fprintf(h.out, "❓ %s help [command] - ヘルプを表示\n", h.appName)
	default:
		fmt.Fprintf(h.out, "❓ %s\n\n", h.GetQuickHelp(command))
		h.showCommands()
	}
}

// ShowContextualError はコンテキストアウェアなエラー表示を提供する
func (h *HelpSystem) ShowContextualError(ctx *CommandContext) {
	h.contextHelp.ShowContextualError(ctx)
}

// GetQuickHelp は簡潔なヘルプを取得する
func (h *HelpSystem) GetQuickHelp(command string) string {
	return h.contextHelp.GetQuickHelp(command)
}

// ShowWarning は警告メッセージを表示する
func (h *HelpSystem) ShowWarning(message string) {
	fmt.Fprintf(h.errOut, "⚠️  %s: %s\n", i18n.T("warning"), message)
}
