package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/interactive"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

// replSession は端末の計算履歴に使うセッション名
const replSession = "repl"

// ReplHandler はreplコマンドを処理する
type ReplHandler struct {
	in  io.Reader
	out io.Writer
}

// NewReplHandler は新しいReplHandlerを作成する
func NewReplHandler(in io.Reader, out io.Writer) *ReplHandler {
	return &ReplHandler{in: in, out: out}
}

// Handle はreplコマンドを実行する
func (h *ReplHandler) Handle(args []string) error {
	asJSON := false
	for _, arg := range args {
		if arg != "--json" {
			return errors.NewError(errors.ErrorTypeCommand, "unknown_option", arg).
				WithRecoverable(true)
		}
		asJSON = true
	}

	ctx := context.Background()
	history := tape.NewMemoryTape(tape.DefaultLimit)
	defer history.Close()

	presenter := NewSnapshotPresenter(h.out, asJSON)
	prompter := interactive.NewPrompter(h.in, h.out)
	m := calculator.NewMachine(nil)

	if !asJSON {
		prompter.ShowBanner(fmt.Sprintf("🧮 %s %s", AppName, Version), i18n.T("repl_welcome"))
	}

	prompt := "> "
	if asJSON {
		prompt = ""
	}

	for {
		line, ok := prompter.ReadLine(prompt)
		if !ok {
			return nil
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			if !asJSON {
				fmt.Fprintln(h.out, i18n.T("repl_bye"))
			}
			return nil
		case "history", "h":
			entries, err := history.Recent(ctx, replSession, tape.DefaultLimit)
			if err != nil {
				return errors.TapeUnavailable(err)
			}
			if len(entries) == 0 && !asJSON {
				fmt.Fprintf(h.out, "  %s\n", i18n.T("label_no_history"))
				continue
			}
			if err := presenter.PresentHistory(entries); err != nil {
				return err
			}
			continue
		}

		// 一行の中に不正な語がある場合はその行を全て捨てる
		events, err := parseInput([]string{line})
		if err != nil {
			fmt.Fprintln(h.out, errors.FormatError(err))
			continue
		}

		snap := m.Snapshot()
		for _, ev := range events {
			snap = m.Apply(ev)
			if snap.Trace == "" {
				continue
			}
			if err := history.Append(ctx, tape.Entry{
				Session:    replSession,
				Expression: snap.Trace,
				Result:     snap.Display,
				RecordedAt: time.Now(),
			}); err != nil {
				return errors.TapeUnavailable(err)
			}
		}

		if err := presenter.Present(snap); err != nil {
			return err
		}
	}
}
