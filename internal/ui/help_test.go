package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
)

func TestShowMainHelp(t *testing.T) {
	var out bytes.Buffer
	NewHelpSystemWithOutput("webcalc", "1.2.3", &out, &out).ShowMainHelp()

	for _, want := range []string{"webcalc v1.2.3", "eval", "repl", "sq x²"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("main help does not contain %q", want)
		}
	}
}

func TestShowCommandHelpUnknown(t *testing.T) {
	i18n.SetLocale(i18n.LocaleEN)
	var out bytes.Buffer
	NewHelpSystemWithOutput("webcalc", "1.2.3", &out, &out).ShowCommandHelp("nope")
	if !strings.Contains(out.String(), "See the help command for details") {
		t.Errorf("unknown command help = %q", out.String())
	}
}

func TestContextualErrorLimitsSuggestions(t *testing.T) {
	i18n.SetLocale(i18n.LocaleEN)
	var out bytes.Buffer
	provider := NewContextHelpProvider("webcalc", &out)

	err := errors.NewError(errors.ErrorTypeInput, "missing_tokens").
		WithSuggestions("one", "two", "one")
	provider.ShowContextualError(&CommandContext{
		Command:   "eval",
		Error:     err,
		ErrorType: errors.ErrorTypeInput,
	})

	text := out.String()
	if !strings.Contains(text, "No input given") {
		t.Errorf("missing message: %q", text)
	}
	if got := strings.Count(text, "•"); got != maxSuggestions {
		t.Errorf("shown %d suggestions, want %d:\n%s", got, maxSuggestions, text)
	}
	if strings.Count(text, "• one") != 1 {
		t.Errorf("suggestions should be deduplicated:\n%s", text)
	}
}

func TestContextualErrorShowsCause(t *testing.T) {
	var out bytes.Buffer
	provider := NewContextHelpProvider("webcalc", &out)
	provider.ShowContextualError(&CommandContext{
		Command: "repl",
		Error:   errors.TapeUnavailable(stderrors.New("disk full")),
	})
	if !strings.Contains(out.String(), "disk full") {
		t.Errorf("cause missing: %q", out.String())
	}
}
