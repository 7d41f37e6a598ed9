package cli

import (
	"io"
	"os"

	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/ui"
)

const (
	// Version はアプリケーションのバージョン
	Version = "0.1.0"
	// AppName はアプリケーション名
	AppName = "webcalc"
)

// App はCLIアプリケーションを表す
type App struct {
	helpSystem     *ui.HelpSystem
	commandHandler *CommandHandler
}

// NewApp は新しいCLIアプリケーションを作成する
func NewApp() *App {
	return NewAppWithIO(os.Stdin, os.Stdout, os.Stderr)
}

// NewAppWithIO は入出力を指定してCLIアプリケーションを作成する
func NewAppWithIO(in io.Reader, out, errOut io.Writer) *App {
	// i18nシステムを初期化
	i18n.Initialize()

	// エラーフォーマッターを初期化
	errors.InitializeFormatter()

	// ヘルプシステムを初期化
	helpSystem := ui.NewHelpSystemWithOutput(AppName, Version, out, errOut)

	// コマンドハンドラーを初期化
	commandHandler := NewCommandHandler(helpSystem, in, out)

	return &App{
		helpSystem:     helpSystem,
		commandHandler: commandHandler,
	}
}

// Run はCLIアプリケーションを実行する
func (a *App) Run(args []string) int {
	if len(args) < 2 {
		a.helpSystem.ShowMainHelp()
		return 1
	}

	command := args[1]
	cmdArgs := args[2:]

	// コマンドを実行
	if err := a.commandHandler.Execute(command, cmdArgs); err != nil {
		ctx := &ui.CommandContext{
			Command: command,
			Args:    cmdArgs,
			Error:   err,
		}

		// エラータイプを設定
		if friendlyErr, ok := errors.As(err); ok {
			ctx.ErrorType = friendlyErr.Type
			ctx.Error = friendlyErr.WithCommand(command)
		} else {
			ctx.ErrorType = errors.ErrorTypeGeneral
			ctx.Error = errors.WrapError(err, errors.ErrorTypeGeneral, "generic_error").WithCommand(command)
		}

		// コンテキストアウェアなエラー表示
		a.helpSystem.ShowContextualError(ctx)
		return 1
	}

	return 0
}
