package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/i18n"
)

func runApp(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	i18n.SetLocale(i18n.LocaleEN)

	var out, errOut bytes.Buffer
	app := NewAppWithIO(strings.NewReader(stdin), &out, &errOut)
	code := app.Run(append([]string{AppName}, args...))
	return code, out.String(), errOut.String()
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"addition", []string{"12", "+", "7", "="}, "19  (12 + 7 =)"},
		{"single argument", []string{"12 + 7 ="}, "19  (12 + 7 =)"},
		{"subtract is not an option", []string{"5", "-", "8", "="}, "-3  (5 - 8 =)"},
		{"division by zero", []string{"9", "/", "0", "="}, "Error"},
		{"pending operator", []string{"4", "x"}, "4  (4 ×)"},
		{"square", []string{"3", "sq"}, "9"},
		{"backspace", []string{"123", "bs"}, "12"},
		{"empty display", []string{"c"}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runApp(t, "", append([]string{"eval"}, tt.args...)...)
			if code != 0 {
				t.Fatalf("exit code = %d, stderr = %s", code, errOut)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvalJSONTrace(t *testing.T) {
	code, out, _ := runApp(t, "", "eval", "--json", "--trace", "2", "*", "4", "=")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// 初期描画 + 4イベント
	if len(lines) != 5 {
		t.Fatalf("got %d snapshots, want 5:\n%s", len(lines), out)
	}

	var last calculator.Snapshot
	if err := json.Unmarshal([]byte(lines[4]), &last); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if last.Display != "8" || last.Trace != "2 × 4 =" {
		t.Errorf("last snapshot = %+v", last)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no tokens", []string{"eval"}, "No input given"},
		{"unknown option", []string{"eval", "--verbose", "1"}, "Unknown option: --verbose"},
		{"unknown token", []string{"eval", "1", "sqrt"}, "Unknown input event: sqrt"},
		{"unknown command", []string{"frobnicate"}, "Unknown command: frobnicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runApp(t, "", tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr = %q, want %q", errOut, tt.want)
			}
			if !strings.Contains(errOut, "💡") {
				t.Errorf("stderr should contain suggestions: %q", errOut)
			}
		})
	}
}

func TestRepl(t *testing.T) {
	input := strings.Join([]string{
		"1 + 2",
		"=",
		"* 4 =",
		"oops",
		"history",
		"quit",
		"7",
	}, "\n")

	code, out, _ := runApp(t, input, "repl")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	for _, want := range []string{
		"2  (1 + 2)",
		"3  (1 + 2 =)",
		"12  (3 × 4 =)",
		"Unknown input event: oops",
		"  1 + 2 = 3",
		"  3 × 4 = 12",
		"Bye",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	// quit の後の入力は処理されない
	if strings.Contains(out, "\n7\n") {
		t.Errorf("input after quit was applied:\n%s", out)
	}
	// 履歴は古い順
	if strings.Index(out, "  1 + 2 = 3") > strings.Index(out, "  3 × 4 = 12") {
		t.Errorf("history should be oldest first:\n%s", out)
	}
}

func TestReplEndOfInput(t *testing.T) {
	code, out, _ := runApp(t, "5 sq\n", "repl", "--json")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var snap calculator.Snapshot
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &snap); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if snap.Display != "25" {
		t.Errorf("display = %q, want 25", snap.Display)
	}
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runApp(t, "", "version")
	if code != 0 || !strings.Contains(out, Version) {
		t.Errorf("version: code=%d out=%q", code, out)
	}

	code, out, _ = runApp(t, "", "help", "eval")
	if code != 0 || !strings.Contains(out, "--trace") {
		t.Errorf("help eval: code=%d out=%q", code, out)
	}

	code, out, _ = runApp(t, "")
	if code != 1 || !strings.Contains(out, "eval") {
		t.Errorf("no args: code=%d out=%q", code, out)
	}
}

func TestFormatSnapshot(t *testing.T) {
	tests := []struct {
		snap calculator.Snapshot
		want string
	}{
		{calculator.Snapshot{Display: "0"}, "0"},
		{calculator.Snapshot{Display: "12", Preview: "12"}, "12"},
		{calculator.Snapshot{Display: "12", Operator: "+", Preview: "12 +"}, "12  (12 +)"},
		{calculator.Snapshot{Display: "5", Preview: "5", Trace: "2 + 3 ="}, "5  (2 + 3 =)"},
	}
	for _, tt := range tests {
		if got := FormatSnapshot(tt.snap); got != tt.want {
			t.Errorf("FormatSnapshot(%+v) = %q, want %q", tt.snap, got, tt.want)
		}
	}
}

func TestUnknownCommandListsCommands(t *testing.T) {
	_, _, errOut := runApp(t, "", "frobnicate")
	if !strings.Contains(errOut, "Available commands: eval, help, repl, version") {
		t.Errorf("stderr = %q, want command list", errOut)
	}
}

func TestEvalWarnsOnIncompleteExpression(t *testing.T) {
	code, out, errOut := runApp(t, "", "eval", "4", "x")
	if code != 0 || !strings.Contains(out, "4  (4 ×)") {
		t.Errorf("eval: code=%d out=%q", code, out)
	}
	if !strings.Contains(errOut, "Warning: Expression is not complete: 4 ×") {
		t.Errorf("stderr = %q, want incomplete warning", errOut)
	}

	_, _, errOut = runApp(t, "", "eval", "4", "x", "2", "=")
	if errOut != "" {
		t.Errorf("stderr = %q, want no warning", errOut)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestReplReportsOutputErrors(t *testing.T) {
	i18n.SetLocale(i18n.LocaleEN)
	h := NewReplHandler(strings.NewReader("history\n"), failingWriter{})
	if err := h.Handle([]string{"--json"}); err == nil {
		t.Error("history output error should be returned")
	}
}
