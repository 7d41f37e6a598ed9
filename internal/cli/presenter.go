package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

// SnapshotPresenter は描画情報を端末に出力する
type SnapshotPresenter struct {
	out  io.Writer
	json bool
}

// NewSnapshotPresenter は新しいプレゼンターを作成する
func NewSnapshotPresenter(out io.Writer, asJSON bool) *SnapshotPresenter {
	return &SnapshotPresenter{out: out, json: asJSON}
}

// Present は一件の描画情報を出力する
func (p *SnapshotPresenter) Present(s calculator.Snapshot) error {
	if p.json {
		return json.NewEncoder(p.out).Encode(s)
	}
	_, err := fmt.Fprintln(p.out, FormatSnapshot(s))
	return err
}

// PresentHistory は計算履歴を古い順に出力する
func (p *SnapshotPresenter) PresentHistory(entries []tape.Entry) error {
	if p.json {
		return json.NewEncoder(p.out).Encode(entries)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if _, err := fmt.Fprintf(p.out, "  %s %s\n", entries[i].Expression, entries[i].Result); err != nil {
			return err
		}
	}
	return nil
}

// FormatSnapshot は描画情報を一行の文字列にする
//
// 表示値の後ろに、計算式（計算直後）またはプレビューを括弧で付ける。
func FormatSnapshot(s calculator.Snapshot) string {
	context := s.Preview
	if s.Trace != "" {
		context = s.Trace
	}
	if context == "" || context == s.Display {
		return s.Display
	}
	return fmt.Sprintf("%s  (%s)", s.Display, context)
}

// parseInput は端末からの語をイベント列に変換する
func parseInput(words []string) ([]calculator.Event, error) {
	var events []calculator.Event
	for _, word := range words {
		for _, field := range strings.Fields(word) {
			evs, err := calculator.ParseToken(field)
			if err != nil {
				return nil, errors.InvalidInput(err, field, field)
			}
			events = append(events, evs...)
		}
	}
	return events, nil
}
