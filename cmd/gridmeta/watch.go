package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/gridmeta/internal/storage"
)

// cmdWatch logs the grid every time one of its JSONL files is replaced or
// appended to, until the context is canceled.
func cmdWatch(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("watch")
	id := gridFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	if _, err := s.Load(ctx, *id); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()
	dir := s.GridDir(*id)
	for _, d := range []string{dir, filepath.Join(dir, "rows")} {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}
	slog.InfoContext(ctx, "watching grid", "grid", *id, "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isTableChange(event) {
				continue
			}
			s.Invalidate(*id)
			g, err := s.Load(ctx, *id)
			if err != nil {
				slog.WarnContext(ctx, "failed to reload grid", "grid", *id, "err", err)
				continue
			}
			slog.InfoContext(ctx, "grid changed", "grid", g.ID, "file", filepath.Base(event.Name), "fields", len(g.Fields), "blocks", len(g.Blocks), "rows", g.RowCount())
			if err := g.CheckOffsets(); err != nil {
				slog.WarnContext(ctx, "stale offsets", "grid", g.ID, "err", err)
			}
			if _, err := fmt.Fprintf(w, "%s %d %d %d\n", g.ID, len(g.Fields), len(g.Blocks), g.RowCount()); err != nil {
				return err
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "error watching grid", "grid", *id, "err", err)
		}
	}
}

// isTableChange reports whether event completed a write to a table file.
// Temporary files used for atomic rewrites are ignored; their rename into
// place shows up as a Create of the table file.
func isTableChange(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".jsonl") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
