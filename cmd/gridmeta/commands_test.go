package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/gridmeta/internal/storage"
)

const testTemplate = `
version: 1
id: tasks
fields:
  - name: Title
  - name: Done
    type: Checkbox
`

func newTestStore(t *testing.T) *storage.GridStore {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

// run executes one command and returns its trimmed output.
func run(t *testing.T, s *storage.GridStore, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := runCommand(t.Context(), s, args, &buf); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return strings.TrimSpace(buf.String())
}

func initGrid(t *testing.T, s *storage.GridStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(path, []byte(testTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := run(t, s, "init", "-template", path); got != "tasks" {
		t.Fatalf("init printed %q, want tasks", got)
	}
}

func TestCommands(t *testing.T) {
	s := newTestStore(t)
	initGrid(t, s)

	if got := run(t, s, "list"); got != "tasks" {
		t.Errorf("list = %q", got)
	}

	fieldID := run(t, s, "add-field", "-grid", "tasks", "-name", "Due", "-type", "DateTime")
	rowID := run(t, s, "add-row", "-grid", "tasks")
	if got := run(t, s, "set-cell", "-grid", "tasks", "-row", rowID, "-field", fieldID, "-data", "2024-01-01"); got != fieldID+`="2024-01-01"` {
		t.Errorf("set-cell = %q", got)
	}
	// Without -data the changeset is a no-op.
	if got := run(t, s, "set-cell", "-grid", "tasks", "-row", rowID, "-field", fieldID); got != fieldID+`="2024-01-01"` {
		t.Errorf("set-cell without data = %q", got)
	}

	run(t, s, "add-block", "-grid", "tasks")
	run(t, s, "add-row", "-grid", "tasks")

	show := run(t, s, "show", "-grid", "tasks", "-rows")
	for _, want := range []string{"grid tasks: 3 fields, 2 blocks, 2 rows", "DateTime", `Due="2024-01-01"`} {
		if !strings.Contains(show, want) {
			t.Errorf("show output lacks %q:\n%s", want, show)
		}
	}
	if strings.Contains(show, "warning") {
		t.Errorf("show reports stale offsets:\n%s", show)
	}

	out := filepath.Join(t.TempDir(), "tasks.cbor")
	run(t, s, "encode", "-grid", "tasks", "-o", out)
	decoded := run(t, s, "decode", "-i", out)
	lines := strings.Split(decoded, "\n")
	if len(lines) != 3 || lines[0] != "grid tasks: 3 fields, 2 blocks, 2 rows" {
		t.Errorf("decode = %q", decoded)
	}
}

func TestCommandErrors(t *testing.T) {
	s := newTestStore(t)
	initGrid(t, s)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"missing grid", []string{"show"}},
		{"unknown grid", []string{"show", "-grid", "nope"}},
		{"unknown flag", []string{"list", "-x"}},
		{"extra args", []string{"list", "extra"}},
		{"bad type", []string{"add-field", "-grid", "tasks", "-type", "Formula"}},
		{"unknown row", []string{"set-cell", "-grid", "tasks", "-row", "nope", "-field", "x", "-data", "y"}},
		{"init without template", []string{"init"}},
		{"decode without input", []string{"decode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCommand(t.Context(), s, tt.args, &bytes.Buffer{}); err == nil {
				t.Errorf("%v succeeded", tt.args)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	s := newTestStore(t)
	initGrid(t, s)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	pr, pw := newPipe()
	done := make(chan error, 1)
	go func() {
		done <- runCommand(ctx, s, []string{"watch", "-grid", "tasks"}, pw)
	}()

	// Give the watcher time to register before changing files.
	time.Sleep(200 * time.Millisecond)
	writer := newTestStoreAt(t, filepath.Dir(s.GridDir("tasks")))
	if _, err := writer.CreateRow(ctx, "tasks"); err != nil {
		t.Fatal(err)
	}

	select {
	case line := <-pr:
		if !strings.HasPrefix(line, "tasks 2 1 ") {
			t.Errorf("watch printed %q", line)
		}
	case <-ctx.Done():
		t.Fatal("watch reported nothing")
	}
	cancel()
	<-done
}

func newTestStoreAt(t *testing.T, dir string) *storage.GridStore {
	t.Helper()
	s, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// linePipe sends every written line on a channel.
type linePipe chan string

func newPipe() (<-chan string, linePipe) {
	c := make(linePipe, 16)
	return c, c
}

func (p linePipe) Write(b []byte) (int, error) {
	for line := range strings.SplitSeq(strings.TrimSpace(string(b)), "\n") {
		select {
		case p <- line:
		default:
		}
	}
	return len(b), nil
}
