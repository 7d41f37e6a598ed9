package cli

import (
	"io"
	"strings"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/ui"
)

// EvalHandler はevalコマンドを処理する
type EvalHandler struct {
	out        io.Writer
	helpSystem *ui.HelpSystem
}

// NewEvalHandler は新しいEvalHandlerを作成する
func NewEvalHandler(out io.Writer, helpSystem *ui.HelpSystem) *EvalHandler {
	return &EvalHandler{out: out, helpSystem: helpSystem}
}

// Handle はevalコマンドを実行する
func (h *EvalHandler) Handle(args []string) error {
	var (
		asJSON bool
		trace  bool
		words  []string
	)

	// "-" は減算の語なので "--" で始まるものだけをオプションとする
	for _, arg := range args {
		switch {
		case arg == "--json":
			asJSON = true
		case arg == "--trace":
			trace = true
		case strings.HasPrefix(arg, "--"):
			return errors.NewError(errors.ErrorTypeCommand, "unknown_option", arg).
				WithRecoverable(true)
		default:
			words = append(words, arg)
		}
	}

	if len(words) == 0 {
		return errors.NewError(errors.ErrorTypeInput, "missing_tokens").WithRecoverable(true)
	}

	events, err := parseInput(words)
	if err != nil {
		return err
	}

	presenter := NewSnapshotPresenter(h.out, asJSON)

	var presentErr error
	render := func(s calculator.Snapshot) {
		if trace && presentErr == nil {
			presentErr = presenter.Present(s)
		}
	}

	m := calculator.NewMachine(render)
	last := m.Snapshot()
	for _, ev := range events {
		last = m.Apply(ev)
	}

	// 演算子が残ったままの入力は計算されていない
	if last.Operator != "" && h.helpSystem != nil {
		h.helpSystem.ShowWarning(i18n.T("warning_incomplete", last.Preview))
	}

	if trace {
		return presentErr
	}
	return presenter.Present(last)
}
