package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/i18n"
)

// ErrorType はエラーの種類を定義する
type ErrorType int

const (
	// ErrorTypeGeneral は一般的なエラー
	ErrorTypeGeneral ErrorType = iota
	// ErrorTypeInput は入力イベント関連のエラー
	ErrorTypeInput
	// ErrorTypeSession はセッション関連のエラー
	ErrorTypeSession
	// ErrorTypeTape は計算履歴関連のエラー
	ErrorTypeTape
	// ErrorTypeCommand はコマンド関連のエラー
	ErrorTypeCommand
	// ErrorTypeConfig は設定関連のエラー
	ErrorTypeConfig
	// ErrorTypeNetwork はネットワーク関連のエラー
	ErrorTypeNetwork
)

// FriendlyError はユーザーフレンドリーなエラー
type FriendlyError struct {
	Type        ErrorType
	Key         string
	Args        []interface{}
	Cause       error
	Suggestions []string
	Command     string
	recoverable bool
}

// Error は error インターフェースを実装する
func (e *FriendlyError) Error() string {
	return i18n.T(e.Key, e.Args...)
}

// Unwrap は内部エラーを返す
func (e *FriendlyError) Unwrap() error {
	return e.Cause
}

// Localize は指定したロケールでメッセージを取得する
func (e *FriendlyError) Localize(locale i18n.Locale) string {
	return i18n.TL(locale, e.Key, e.Args...)
}

// GetSuggestions は解決策の提案を取得する
func (e *FriendlyError) GetSuggestions() []string {
	return e.Suggestions
}

// IsRecoverable はエラーが回復可能かどうかを返す
func (e *FriendlyError) IsRecoverable() bool {
	return e.recoverable
}

// NewError は新しいフレンドリーエラーを作成する
func NewError(errorType ErrorType, key string, args ...interface{}) *FriendlyError {
	return &FriendlyError{
		Type: errorType,
		Key:  key,
		Args: args,
	}
}

// WrapError は既存のエラーをラップする
func WrapError(cause error, errorType ErrorType, key string, args ...interface{}) *FriendlyError {
	return &FriendlyError{
		Type:  errorType,
		Key:   key,
		Args:  args,
		Cause: cause,
	}
}

// WithSuggestions は提案を追加する
func (e *FriendlyError) WithSuggestions(suggestions ...string) *FriendlyError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithCommand はコマンドコンテキストを追加する
func (e *FriendlyError) WithCommand(command string) *FriendlyError {
	e.Command = command
	return e
}

// WithRecoverable は回復可能フラグを設定する
func (e *FriendlyError) WithRecoverable(recoverable bool) *FriendlyError {
	e.recoverable = recoverable
	return e
}

// As は err から FriendlyError を取り出す
func As(err error) (*FriendlyError, bool) {
	var friendly *FriendlyError
	if stderrors.As(err, &friendly) {
		return friendly, true
	}
	return nil, false
}

// ErrorFormatter はエラーのフォーマッター
type ErrorFormatter struct {
	colorEnabled    bool
	showCause       bool
	showSuggestions bool
}

// NewErrorFormatter は新しいエラーフォーマッターを作成する
func NewErrorFormatter() *ErrorFormatter {
	return &ErrorFormatter{
		colorEnabled:    true,
		showCause:       true,
		showSuggestions: true,
	}
}

// SetColorEnabled はカラー表示を設定する
func (f *ErrorFormatter) SetColorEnabled(enabled bool) {
	f.colorEnabled = enabled
}

// Format はエラーをフォーマットする
func (f *ErrorFormatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var result strings.Builder

	if friendlyErr, ok := As(err); ok {
		f.formatFriendlyError(&result, friendlyErr)
	} else {
		f.formatGenericError(&result, err)
	}

	return result.String()
}

// formatFriendlyError はフレンドリーエラーをフォーマットする
func (f *ErrorFormatter) formatFriendlyError(result *strings.Builder, err *FriendlyError) {
	icon := f.getErrorIcon(err.Type)
	result.WriteString(f.colorRed(fmt.Sprintf("%s %s: %s", icon, i18n.T("error"), err.Error())))

	// 原因エラーを表示
	if f.showCause && err.Cause != nil {
		result.WriteString(fmt.Sprintf("\n  %s: %s", i18n.T("caused_by"), err.Cause.Error()))
	}

	// 提案を表示
	if f.showSuggestions && len(err.Suggestions) > 0 {
		result.WriteString(fmt.Sprintf("\n\n💡 %s:", i18n.T("suggestions")))
		for _, suggestion := range err.Suggestions {
			result.WriteString(fmt.Sprintf("\n  %s %s", f.colorYellow("•"), suggestion))
		}
	}

	// コマンド固有のヘルプ
	if err.Command != "" {
		result.WriteString(fmt.Sprintf("\n\n💡 %s", i18n.T("help_hint_general")))
	}
}

// formatGenericError は通常のエラーをフォーマットする
func (f *ErrorFormatter) formatGenericError(result *strings.Builder, err error) {
	icon := f.getErrorIcon(ErrorTypeGeneral)
	result.WriteString(f.colorRed(fmt.Sprintf("%s %s: %s", icon, i18n.T("error"), err.Error())))
}

// getErrorIcon はエラータイプに応じたアイコンを返す
func (f *ErrorFormatter) getErrorIcon(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeInput:
		return "🔢"
	case ErrorTypeSession:
		return "🔑"
	case ErrorTypeTape:
		return "📜"
	case ErrorTypeCommand:
		return "⚙️"
	case ErrorTypeConfig:
		return "🛠️"
	case ErrorTypeNetwork:
		return "🌐"
	default:
		return "❌"
	}
}

// colorRed は文字列を赤色にする
func (f *ErrorFormatter) colorRed(text string) string {
	if !f.colorEnabled {
		return text
	}
	return fmt.Sprintf("\033[31m%s\033[0m", text)
}

// colorYellow は文字列を黄色にする
func (f *ErrorFormatter) colorYellow(text string) string {
	if !f.colorEnabled {
		return text
	}
	return fmt.Sprintf("\033[33m%s\033[0m", text)
}

// 便利な関数群

// InvalidInput は入力イベントの検証エラーを変換する
func InvalidInput(cause error, kind, value string) *FriendlyError {
	switch {
	case stderrors.Is(cause, calculator.ErrInvalidDigit):
		return WrapError(cause, ErrorTypeInput, "invalid_digit", value).
			WithSuggestions(i18n.T("suggestion_digit_example")).
			WithRecoverable(true)
	case stderrors.Is(cause, calculator.ErrUnknownOperator):
		return WrapError(cause, ErrorTypeInput, "unknown_operator", value).
			WithSuggestions(i18n.T("suggestion_operator_kinds")).
			WithRecoverable(true)
	default:
		return WrapError(cause, ErrorTypeInput, "unknown_event", kind).
			WithSuggestions(i18n.T("suggestion_event_kinds")).
			WithRecoverable(true)
	}
}

// InvalidRequestBody はリクエスト本文の解析エラーを作成する
func InvalidRequestBody(cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeInput, "invalid_request_body").
		WithSuggestions(i18n.T("suggestion_digit_example")).
		WithRecoverable(true)
}

// InvalidSession はセッションが無効なエラーを作成する
func InvalidSession() *FriendlyError {
	return NewError(ErrorTypeSession, "session_invalid").
		WithSuggestions(i18n.T("suggestion_reload_page")).
		WithRecoverable(true)
}

// TapeUnavailable は計算履歴が利用できないエラーを作成する
func TapeUnavailable(cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeTape, "tape_unavailable").
		WithSuggestions(i18n.T("suggestion_tape_backend"))
}

// InvalidConfig は設定値の検証エラーを作成する
func InvalidConfig(field, detail string) *FriendlyError {
	return NewError(ErrorTypeConfig, "config_invalid", field+": "+detail).
		WithSuggestions(i18n.T("help_hint_general"))
}

// UnknownCommand は不明なコマンドエラーを作成する
func UnknownCommand(command string) *FriendlyError {
	return NewError(ErrorTypeCommand, "unknown_command", command).
		WithSuggestions(
			i18n.T("help_hint_general"),
			i18n.T("suggestion_check_spelling"),
		).
		WithRecoverable(true)
}

// Global formatter instance
var globalFormatter *ErrorFormatter

// InitializeFormatter はグローバルなエラーフォーマッターを初期化する
func InitializeFormatter() {
	globalFormatter = NewErrorFormatter()
}

// FormatError はグローバルなエラーフォーマット関数
func FormatError(err error) string {
	if globalFormatter == nil {
		InitializeFormatter()
	}
	return globalFormatter.Format(err)
}
