package cli

import (
	"fmt"
	"io"

	"github.com/y-hirakaw/webcalc/internal/ui"
)

// VersionHandler はversionコマンドを処理する
type VersionHandler struct {
	out io.Writer
}

// NewVersionHandler は新しいVersionHandlerを作成する
func NewVersionHandler(out io.Writer) *VersionHandler {
	return &VersionHandler{out: out}
}

// Handle はversionコマンドを実行する
func (h *VersionHandler) Handle(args []string) error {
	fmt.Fprintf(h.out, "%s version %s\n", AppName, Version)
	return nil
}

// HelpHandler はhelpコマンドを処理する
type HelpHandler struct {
	helpSystem *ui.HelpSystem
}

// NewHelpHandler は新しいHelpHandlerを作成する
func NewHelpHandler(helpSystem *ui.HelpSystem) *HelpHandler {
	return &HelpHandler{
		helpSystem: helpSystem,
	}
}

// Handle はhelpコマンドを実行する
func (h *HelpHandler) Handle(args []string) error {
	if len(args) > 0 {
		// 特定のコマンドのヘルプを表示
		h.helpSystem.ShowCommandHelp(args[0])
	} else {
		// メインヘルプを表示
		h.helpSystem.ShowMainHelp()
	}
	return nil
}
