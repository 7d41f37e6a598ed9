package ui

import (
	"fmt"
	"io"

	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
)

// maxSuggestions は一度に表示する提案の数
const maxSuggestions = 3

// ContextHelpProvider はコンテキストに応じたヘルプを提供する
type ContextHelpProvider struct {
	appName string
	out     io.Writer
}

// NewContextHelpProvider は新しいContextHelpProviderを作成する
func NewContextHelpProvider(appName string, out io.Writer) *ContextHelpProvider {
	return &ContextHelpProvider{
		appName: appName,
		out:     out,
	}
}

// CommandContext は実行コンテキスト情報
type CommandContext struct {
	Command   string
	Args      []string
	Error     error
	ErrorType errors.ErrorType
}

// GetContextualHelp はコンテキストに応じたヘルプメッセージを生成する
func (c *ContextHelpProvider) GetContextualHelp(ctx *CommandContext) []string {
	var suggestions []string

	// エラーに付いている提案を優先
	if friendly, ok := errors.As(ctx.Error); ok {
		suggestions = append(suggestions, friendly.GetSuggestions()...)
	}

	// エラータイプ別の基本的な提案
	switch ctx.ErrorType {
	case errors.ErrorTypeInput:
		suggestions = append(suggestions, fmt.Sprintf("%s help", c.appName))
	case errors.ErrorTypeCommand:
		suggestions = append(suggestions, i18n.T("help_hint_general"))
	}

	// コマンド固有の提案
	switch ctx.Command {
	case "eval":
		if len(ctx.Args) == 0 {
			suggestions = append(suggestions, fmt.Sprintf("%s eval 1 + 2 =", c.appName))
		}
		suggestions = append(suggestions, fmt.Sprintf("%s help eval", c.appName))
	case "repl":
		suggestions = append(suggestions, fmt.Sprintf("%s help repl", c.appName))
	}

	return deduplicate(suggestions)
}

// deduplicate は重複を除く
func deduplicate(suggestions []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, s := range suggestions {
		if s != "" && !seen[s] {
			seen[s] = true
			unique = append(unique, s)
		}
	}
	return unique
}

// ShowContextualError はコンテキストに応じたエラーメッセージを表示する
func (c *ContextHelpProvider) ShowContextualError(ctx *CommandContext) {
	fmt.Fprintf(c.out, "❌ %s: %v\n", i18n.T("error"), ctx.Error)

	if friendly, ok := errors.As(ctx.Error); ok && friendly.Cause != nil {
		fmt.Fprintf(c.out, "   %s: %v\n", i18n.T("caused_by"), friendly.Cause)
	}

	suggestions := c.GetContextualHelp(ctx)
	if len(suggestions) == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n💡 %s:\n", i18n.T("suggestions"))
	for i, suggestion := range suggestions {
		if i >= maxSuggestions {
			break
		}
		fmt.Fprintf(c.out, "   • %s\n", suggestion)
	}
}

// GetQuickHelp は簡潔なヘルプメッセージを取得する
func (c *ContextHelpProvider) GetQuickHelp(command string) string {
	quickHelps := map[string]string{
		"eval":    i18n.T("quick_help_eval"),
		"repl":    i18n.T("quick_help_repl"),
		"version": i18n.T("quick_help_version"),
		"help":    i18n.T("quick_help_help"),
	}

	if help, exists := quickHelps[command]; exists {
		return help
	}
	return i18n.T("quick_help_unknown")
}
