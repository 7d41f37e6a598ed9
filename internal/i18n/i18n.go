package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Locale は言語ロケール
type Locale string

const (
	// LocaleJA は日本語
	LocaleJA Locale = "ja"
	// LocaleEN は英語
	LocaleEN Locale = "en"
)

// Messages は翻訳メッセージのマップ
type Messages map[string]string

// I18n は国際化システム
type I18n struct {
	mu            sync.RWMutex
	currentLocale Locale
	messages      map[Locale]Messages
	fallback      Locale
}

// NewI18n は新しい国際化システムを作成する
func NewI18n() *I18n {
	i18n := &I18n{
		currentLocale: LocaleJA, // デフォルトは日本語
		messages:      make(map[Locale]Messages),
		fallback:      LocaleEN,
	}

	// デフォルトメッセージを読み込み
	i18n.loadDefaultMessages()

	// 環境変数から言語設定を読み込み
	if lang := os.Getenv("WEBCALC_LANG"); lang != "" {
		i18n.SetLocale(Locale(lang))
	} else if lang := os.Getenv("LANG"); lang != "" {
		// システムのLANG環境変数から判定
		if strings.HasPrefix(lang, "ja") {
			i18n.SetLocale(LocaleJA)
		} else {
			i18n.SetLocale(LocaleEN)
		}
	}

	return i18n
}

// SetLocale は現在のロケールを設定する
func (i *I18n) SetLocale(locale Locale) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.currentLocale = locale
}

// GetLocale は現在のロケールを取得する
func (i *I18n) GetLocale() Locale {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.currentLocale
}

// T は現在のロケールで翻訳を取得する
func (i *I18n) T(key string, args ...interface{}) string {
	return i.TL(i.GetLocale(), key, args...)
}

// TL は指定したロケールで翻訳を取得する
func (i *I18n) TL(locale Locale, key string, args ...interface{}) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	// 指定ロケール、フォールバック言語の順に検索
	for _, loc := range []Locale{locale, i.fallback} {
		if messages, exists := i.messages[loc]; exists {
			if message, found := messages[key]; found {
				if len(args) > 0 {
					return fmt.Sprintf(message, args...)
				}
				return message
			}
		}
	}

	// メッセージが見つからない場合はキーをそのまま返す
	if len(args) > 0 {
		return fmt.Sprintf("%s: %v", key, args)
	}
	return key
}

// LoadMessagesFromFile はファイルから翻訳メッセージを読み込む
//
// 既存のメッセージは読み込んだキーだけ上書きされる。
func (i *I18n) LoadMessagesFromFile(fs afero.Fs, locale Locale, filePath string) error {
	data, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return fmt.Errorf("メッセージファイルの読み込みに失敗: %w", err)
	}

	var messages Messages
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("メッセージファイルの解析に失敗: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.messages[locale] == nil {
		i.messages[locale] = Messages{}
	}
	for key, message := range messages {
		i.messages[locale][key] = message
	}
	return nil
}

// LoadMessagesFromDir はディレクトリから翻訳メッセージを読み込む
func (i *I18n) LoadMessagesFromDir(fs afero.Fs, dirPath string) error {
	return afero.Walk(fs, dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		// ファイル名からロケールを判定 (例: messages.ja.json)
		fileName := strings.TrimSuffix(filepath.Base(path), ".json")
		parts := strings.Split(fileName, ".")
		if len(parts) >= 2 {
			locale := Locale(parts[len(parts)-1])
			return i.LoadMessagesFromFile(fs, locale, path)
		}

		return nil
	})
}

// loadDefaultMessages はデフォルトの翻訳メッセージを読み込む
func (i *I18n) loadDefaultMessages() {
	// 日本語メッセージ
	i.messages[LocaleJA] = Messages{
		// 一般的なメッセージ
		"error":       "エラー",
		"warning":     "警告",
		"unknown":     "不明",
		"caused_by":   "原因",
		"suggestions": "解決策",

		// 画面
		"page_title":        "電卓",
		"button_clear":      "AC",
		"button_backspace":  "⌫",
		"button_square":     "x²",
		"button_equals":     "=",
		"label_history":     "履歴",
		"label_no_history":  "まだ計算していません",
		"label_connected":   "接続中",
		"label_offline":     "オフライン",

		// 入力関連のエラー
		"generic_error":             "システムエラーが発生しました",
		"invalid_request_body":      "リクエストの形式が不正です",
		"unknown_event":             "不明な入力イベントです: %s",
		"invalid_digit":             "数字または小数点を一文字で入力してください: %s",
		"unknown_operator":          "不明な演算子です: %s",
		"missing_required_argument": "必須引数が不足しています: %s",
		"invalid_number":            "無効な数値です: %s",

		// セッション関連
		"session_invalid":  "セッションが無効です",
		"session_expired":  "セッションの有効期限が切れました",
		"session_required": "セッションが必要です",

		// 履歴関連
		"tape_unavailable":   "計算履歴を利用できません",
		"tape_fetch_failed":  "計算履歴の取得に失敗しました",
		"tape_record_failed": "計算履歴の記録に失敗しました",

		// コマンド関連
		"unknown_command":   "不明なコマンド: %s",
		"missing_tokens":    "入力が指定されていません",
		"config_invalid":    "設定が無効です: %s",

		// ヘルプ・提案
		"help_hint_general":         "'webcalc help' で利用可能なコマンドを確認できます",
		"suggestion_check_spelling": "コマンドのスペルを確認してください",
		"suggestion_digit_example":  "例: {\"type\":\"digit\",\"value\":\"7\"}",
		"suggestion_operator_kinds": "有効な演算子: add, subtract, multiply, divide, modulo",
		"suggestion_event_kinds":    "有効なイベント: digit, operator, equals, clear, backspace, square",
		"suggestion_reload_page":    "ページを再読み込みしてください",
		"suggestion_tape_backend":   "-tape memory を指定してください",

		// 端末
		"quick_help_eval":    "入力を順に適用して最後の表示を出力します",
		"quick_help_repl":    "一行ずつ入力を適用します",
		"quick_help_version": "バージョン情報を表示します",
		"quick_help_help":    "ヘルプを表示します",
		"quick_help_unknown": "詳細は help コマンドを参照してください",
		"unknown_option":     "不明なオプション: %s",
		"repl_welcome":       "電卓の対話モードです。'quit' で終了します",
		"repl_bye":           "終了します",
		"available_commands": "利用可能なコマンド: %s",
		"warning_incomplete": "式が完了していません: %s (= で計算します)",
	}

	// 英語メッセージ
	i.messages[LocaleEN] = Messages{
		// General messages
		"error":       "Error",
		"warning":     "Warning",
		"unknown":     "Unknown",
		"caused_by":   "Caused by",
		"suggestions": "Suggestions",

		// Page
		"page_title":       "Calculator",
		"button_clear":     "AC",
		"button_backspace": "⌫",
		"button_square":    "x²",
		"button_equals":    "=",
		"label_history":    "History",
		"label_no_history": "No calculations yet",
		"label_connected":  "Connected",
		"label_offline":    "Offline",

		// Input errors
		"generic_error":             "System error occurred",
		"invalid_request_body":      "Malformed request body",
		"unknown_event":             "Unknown input event: %s",
		"invalid_digit":             "Enter a single digit or decimal point: %s",
		"unknown_operator":          "Unknown operator: %s",
		"missing_required_argument": "Missing required argument: %s",
		"invalid_number":            "Invalid number: %s",

		// Sessions
		"session_invalid":  "Invalid session",
		"session_expired":  "Session expired",
		"session_required": "Session required",

		// Tape
		"tape_unavailable":   "Calculation history is unavailable",
		"tape_fetch_failed":  "Failed to fetch calculation history",
		"tape_record_failed": "Failed to record calculation history",

		// Commands
		"unknown_command": "Unknown command: %s",
		"missing_tokens":  "No input given",
		"config_invalid":  "Invalid configuration: %s",

		// Help and suggestions
		"help_hint_general":         "Use 'webcalc help' to see available commands",
		"suggestion_check_spelling": "Check command spelling",
		"suggestion_digit_example":  "Example: {\"type\":\"digit\",\"value\":\"7\"}",
		"suggestion_operator_kinds": "Valid operators: add, subtract, multiply, divide, modulo",
		"suggestion_event_kinds":    "Valid events: digit, operator, equals, clear, backspace, square",
		"suggestion_reload_page":    "Reload the page",
		"suggestion_tape_backend":   "Use -tape memory",

		// Terminal
		"quick_help_eval":    "Apply tokens in order and print the final display",
		"quick_help_repl":    "Apply tokens line by line",
		"quick_help_version": "Show version information",
		"quick_help_help":    "Show help",
		"quick_help_unknown": "See the help command for details",
		"unknown_option":     "Unknown option: %s",
		"repl_welcome":       "Calculator interactive mode. Type 'quit' to exit",
		"repl_bye":           "Bye",
		"available_commands": "Available commands: %s",
		"warning_incomplete": "Expression is not complete: %s (add = to evaluate)",
	}
}

// GetAvailableLocales は利用可能なロケール一覧を返す
func (i *I18n) GetAvailableLocales() []Locale {
	i.mu.RLock()
	defer i.mu.RUnlock()
	locales := make([]Locale, 0, len(i.messages))
	for locale := range i.messages {
		locales = append(locales, locale)
	}
	return locales
}

// ValidateLocale はロケールが有効かどうかを確認する
func (i *I18n) ValidateLocale(locale Locale) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, exists := i.messages[locale]
	return exists
}

// Global instance
var (
	globalI18n *I18n
	globalOnce sync.Once
)

// Initialize はグローバルなi18nシステムを初期化する
func Initialize() {
	globalOnce.Do(func() {
		globalI18n = NewI18n()
	})
}

// Global はグローバルなi18nシステムを返す
func Global() *I18n {
	Initialize()
	return globalI18n
}

// T はグローバルな翻訳関数
func T(key string, args ...interface{}) string {
	return Global().T(key, args...)
}

// TL は指定したロケールでのグローバルな翻訳関数
func TL(locale Locale, key string, args ...interface{}) string {
	return Global().TL(locale, key, args...)
}

// SetLocale はグローバルなロケールを設定する
func SetLocale(locale Locale) {
	Global().SetLocale(locale)
}

// GetLocale はグローバルなロケールを取得する
func GetLocale() Locale {
	return Global().GetLocale()
}

// ParseLocale は "en-US" のような言語指定をロケールに変換する
func ParseLocale(lang string) (Locale, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case strings.HasPrefix(lang, "ja"):
		return LocaleJA, true
	case strings.HasPrefix(lang, "en"):
		return LocaleEN, true
	}
	return "", false
}
