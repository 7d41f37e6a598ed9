package testutil

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/y-hirakaw/webcalc/internal/calculator"
)

// Feed applies a whitespace separated token line (see calculator.ParseTokens)
// to a fresh machine and returns the machine and every rendered snapshot.
func Feed(t *testing.T, line string) (*calculator.Machine, []calculator.Snapshot) {
	t.Helper()

	var rendered []calculator.Snapshot
	m := calculator.NewMachine(func(s calculator.Snapshot) {
		rendered = append(rendered, s)
	})

	events, err := calculator.ParseTokens(line)
	if err != nil {
		t.Fatalf("Failed to parse tokens %q: %v", line, err)
	}
	for _, ev := range events {
		m.Apply(ev)
	}
	return m, rendered
}

// MessageCatalog writes a "<name>.<locale>.json" message catalog into fs
// and returns its path
func MessageCatalog(t *testing.T, fs afero.Fs, dir, name, locale string, messages map[string]string) string {
	t.Helper()

	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create catalog dir: %v", err)
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal messages: %v", err)
	}

	path := filepath.Join(dir, name+"."+locale+".json")
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		t.Fatalf("Failed to write catalog %s: %v", path, err)
	}
	return path
}

// AssertSnapshot asserts the three display fields of a snapshot
func AssertSnapshot(t *testing.T, got calculator.Snapshot, display, operator, preview string) {
	t.Helper()
	if got.Display != display || got.Operator != operator || got.Preview != preview {
		t.Fatalf("snapshot = {%q %q %q}, want {%q %q %q}",
			got.Display, got.Operator, got.Preview, display, operator, preview)
	}
}

// AssertError asserts that an error occurred
func AssertError(t *testing.T, err error, context string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error, got nil", context)
	}
}

// AssertNoError asserts that no error occurred
func AssertNoError(t *testing.T, err error, context string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", context, err)
	}
}

// AssertEqual asserts that two values are equal
func AssertEqual(t *testing.T, got, want interface{}, context string) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: got %v, want %v", context, got, want)
	}
}
