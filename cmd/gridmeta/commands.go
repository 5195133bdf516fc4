package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/maruel/gridmeta/internal/grid"
	"github.com/maruel/gridmeta/internal/storage"
	"github.com/maruel/gridmeta/internal/template"
	"github.com/maruel/gridmeta/internal/wire"
)

type command struct {
	name string
	help string
	run  func(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error
}

var commands = []command{
	{"init", "Create a grid from a YAML template", cmdInit},
	{"list", "List grids", cmdList},
	{"show", "Print a grid's fields and blocks", cmdShow},
	{"add-field", "Append a field", cmdAddField},
	{"add-block", "Append an empty block", cmdAddBlock},
	{"add-row", "Append an empty row to the last block", cmdAddRow},
	{"set-cell", "Set or leave a cell through a cell changeset", cmdSetCell},
	{"recompute", "Recompute block offsets", cmdRecompute},
	{"encode", "Write the positional CBOR encoding of a grid to stdout", cmdEncode},
	{"decode", "Read a CBOR stream written by encode and summarize it", cmdDecode},
	{"watch", "Log a grid every time its files change", cmdWatch},
}

// runCommand dispatches args[0] to its command.
func runCommand(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	if len(args) == 0 {
		return errors.New("a command is required")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, s, args[1:], w)
		}
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%s: unknown arguments: %v", fs.Name(), fs.Args())
	}
	return nil
}

// gridFlag registers the -grid flag shared by most commands.
func gridFlag(fs *flag.FlagSet) *string {
	return fs.String("grid", "", "Grid ID")
}

func requireGrid(fs *flag.FlagSet, id string) error {
	if id == "" {
		return fmt.Errorf("%s: -grid is required", fs.Name())
	}
	return nil
}

func cmdInit(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("init")
	path := fs.String("template", "", "YAML template file")
	id := fs.String("grid", "", "Grid ID; overrides the template's id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("init: -template is required")
	}
	tmpl, err := template.ParseFile(*path)
	if err != nil {
		return err
	}
	cfg := s.Config()
	bc, err := tmpl.BuildContext(s.IDs(), cfg.DefaultFieldWidth, cfg.DefaultRowHeight)
	if err != nil {
		return err
	}
	gridID := tmpl.ID
	if *id != "" {
		gridID = *id
	}
	g, err := s.Create(ctx, gridID, bc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, g.ID)
	return err
}

func cmdList(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ids, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}

func cmdShow(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("show")
	id := gridFlag(fs)
	rows := fs.Bool("rows", false, "Also print every row's cells")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	g, err := s.Load(ctx, *id)
	if err != nil {
		return err
	}
	return printGrid(ctx, s, g, *rows, w)
}

func printGrid(ctx context.Context, s *storage.GridStore, g *grid.Grid, withRows bool, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "grid %s: %d fields, %d blocks, %d rows\n\n", g.ID, len(g.Fields), len(g.Blocks), g.RowCount())
	fmt.Fprintln(tw, "FIELD\tNAME\tTYPE\tWIDTH\tVISIBLE\tFROZEN")
	for _, f := range g.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%t\n", f.ID, f.Name, f.Type, f.Width, f.Visible, f.Frozen)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "BLOCK\tSTART\tCOUNT")
	for _, b := range g.Blocks {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", b.ID, b.StartRowIndex, b.RowCount)
	}
	if err := g.CheckOffsets(); err != nil {
		fmt.Fprintf(tw, "\nwarning: %v\n", err)
	}
	if withRows {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ROW\tBLOCK\tHEIGHT\tVISIBLE\tCELLS")
		for _, b := range g.Blocks {
			br, err := s.Rows(ctx, g.ID, b.ID)
			if err != nil {
				return err
			}
			for _, r := range br.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", r.ID, r.BlockID, r.Height, r.Visible, formatCells(g, r))
			}
		}
	}
	return tw.Flush()
}

// formatCells renders the row's cells in field display order.
func formatCells(g *grid.Grid, r *grid.Row) string {
	out := ""
	for _, f := range g.Fields {
		c, ok := r.Cell(f.ID)
		if !ok {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%q", f.Name, grid.WrapString(f.Type, c.Data).String())
	}
	return out
}

func cmdAddField(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("add-field")
	id := gridFlag(fs)
	name := fs.String("name", "", "Field name")
	desc := fs.String("desc", "", "Field description")
	typ := fs.String("type", grid.RichText.String(), "Field type")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	t, err := grid.ParseFieldType(*typ)
	if err != nil {
		return err
	}
	f, err := s.CreateField(ctx, *id, *name, *desc, t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, f.ID)
	return err
}

func cmdAddBlock(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("add-block")
	id := gridFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	b, err := s.CreateBlock(ctx, *id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, b.ID)
	return err
}

func cmdAddRow(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("add-row")
	id := gridFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	r, err := s.CreateRow(ctx, *id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, r.ID)
	return err
}

func cmdSetCell(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("set-cell")
	id := gridFlag(fs)
	row := fs.String("row", "", "Row ID")
	field := fs.String("field", "", "Field ID")
	data := fs.String("data", "", "Cell data; when omitted the changeset carries no data")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	cs := &grid.CellChangeset{GridID: *id, RowID: *row, FieldID: *field}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "data" {
			cs.Data = data
		}
	})
	r, err := s.ApplyCellChangeset(ctx, cs)
	if err != nil {
		return err
	}
	c, ok := r.Cell(*field)
	if !ok {
		_, err = fmt.Fprintf(w, "%s: unset\n", *field)
		return err
	}
	_, err = fmt.Fprintf(w, "%s=%q\n", *field, c.Data)
	return err
}

func cmdRecompute(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("recompute")
	id := gridFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	g, err := s.RecomputeOffsets(ctx, *id)
	if err != nil {
		return err
	}
	return printGrid(ctx, s, g, false, w)
}

// cmdEncode writes the grid record followed by one BlockRows record per block.
func cmdEncode(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("encode")
	id := gridFlag(fs)
	out := fs.String("o", "", "Output file; stdout when empty")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireGrid(fs, *id); err != nil {
		return err
	}
	g, err := s.Load(ctx, *id)
	if err != nil {
		return err
	}
	if *out != "" {
		f, err := os.Create(*out) //nolint:gosec // User-specified output path
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		w = f
	}
	enc := wire.NewEncoder(w)
	if err := enc.Encode(g); err != nil {
		return err
	}
	for _, b := range g.Blocks {
		br, err := s.Rows(ctx, g.ID, b.ID)
		if err != nil {
			return err
		}
		if err := enc.Encode(br); err != nil {
			return err
		}
	}
	slog.DebugContext(ctx, "encoded grid", "grid", g.ID, "blocks", len(g.Blocks))
	return nil
}

func cmdDecode(ctx context.Context, s *storage.GridStore, args []string, w io.Writer) error {
	fs := newFlagSet("decode")
	in := fs.String("i", "", "Input file written by encode")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("decode: -i is required")
	}
	f, err := os.Open(*in) //nolint:gosec // User-specified input path
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	dec := wire.NewDecoder(f)
	var g grid.Grid
	if err := dec.Decode(&g); err != nil {
		return fmt.Errorf("failed to decode grid: %w", err)
	}
	if _, err := fmt.Fprintf(w, "grid %s: %d fields, %d blocks, %d rows\n", g.ID, len(g.Fields), len(g.Blocks), g.RowCount()); err != nil {
		return err
	}
	for {
		var br grid.BlockRows
		if err := dec.Decode(&br); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode rows: %w", err)
		}
		b, ok := g.Block(br.BlockID)
		if !ok {
			return fmt.Errorf("rows of block %q: %w", br.BlockID, grid.ErrNotFound)
		}
		if b.RowCount != br.Len() {
			slog.WarnContext(ctx, "row count mismatch", "block", b.ID, "count", b.RowCount, "rows", br.Len())
		}
		if _, err := fmt.Fprintf(w, "block %s: %d rows\n", br.BlockID, br.Len()); err != nil {
			return err
		}
	}
}
