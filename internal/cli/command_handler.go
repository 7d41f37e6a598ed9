package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/ui"
)

// Command はCLIコマンドを定義する
type Command struct {
	Name        string
	Description string
	Handler     func(args []string) error
}

// CommandHandler はコマンドの管理と実行を行う
type CommandHandler struct {
	commands   map[string]Command
	helpSystem *ui.HelpSystem

	// 各コマンドハンドラー
	evalHandler    *EvalHandler
	replHandler    *ReplHandler
	versionHandler *VersionHandler
	helpHandler    *HelpHandler
}

// NewCommandHandler は新しいコマンドハンドラーを作成する
func NewCommandHandler(helpSystem *ui.HelpSystem, in io.Reader, out io.Writer) *CommandHandler {
	ch := &CommandHandler{
		helpSystem: helpSystem,
		commands:   make(map[string]Command),
	}

	// 各ハンドラーを初期化
	ch.evalHandler = NewEvalHandler(out, helpSystem)
	ch.replHandler = NewReplHandler(in, out)
	ch.versionHandler = NewVersionHandler(out)
	ch.helpHandler = NewHelpHandler(helpSystem)

	// コマンドを登録
	ch.registerCommands()

	return ch
}

// registerCommands はコマンドを登録する
func (ch *CommandHandler) registerCommands() {
	ch.commands = map[string]Command{
		"eval": {
			Name:        "eval",
			Description: "入力を順に適用して最後の表示を出力する",
			Handler:     ch.evalHandler.Handle,
		},
		"repl": {
			Name:        "repl",
			Description: "一行ずつ入力を適用する",
			Handler:     ch.replHandler.Handle,
		},
		"version": {
			Name:        "version",
			Description: "バージョン情報を表示する",
			Handler:     ch.versionHandler.Handle,
		},
		"help": {
			Name:        "help",
			Description: "ヘルプを表示する",
			Handler:     ch.helpHandler.Handle,
		},
	}
}

// Execute はコマンドを実行する
func (ch *CommandHandler) Execute(command string, args []string) error {
	cmd, exists := ch.commands[command]
	if !exists {
		err := errors.UnknownCommand(command)
		err.Suggestions = append([]string{
			i18n.T("available_commands", strings.Join(ch.GetCommands(), ", ")),
		}, err.Suggestions...)
		return err
	}

	return cmd.Handler(args)
}

// GetCommands は登録されているコマンド名を名前順で取得する
func (ch *CommandHandler) GetCommands() []string {
	names := make([]string, 0, len(ch.commands))
	for name := range ch.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
