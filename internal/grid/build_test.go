package grid

import "testing"

func TestNewBuildGridContext(t *testing.T) {
	c := NewBuildGridContext(&seqIDs{prefix: "b"})
	if c.Block == nil || c.BlockRows == nil {
		t.Fatal("missing block")
	}
	if c.Block.ID == "" || c.Block.ID != c.BlockRows.BlockID {
		t.Errorf("block IDs %q/%q differ", c.Block.ID, c.BlockRows.BlockID)
	}
	if c.Block.RowCount != 0 || c.Block.StartRowIndex != 0 {
		t.Errorf("Block = %+v, want empty", c.Block)
	}
	if c.BlockRows.Rows == nil || len(c.BlockRows.Rows) != 0 {
		t.Errorf("Rows = %v, want empty", c.BlockRows.Rows)
	}
	if len(c.Fields) != 0 {
		t.Errorf("Fields = %v, want none", c.Fields)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestBuildGridContext_Grid(t *testing.T) {
	ids := &seqIDs{prefix: "id"}
	c := NewBuildGridContext(ids)
	c.AddField(ids, "Title", "", RichText)
	c.AddField(ids, "Tags", "", MultiSelect)
	g, err := c.Grid("g1")
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != "g1" || len(g.Fields) != 2 || len(g.Blocks) != 1 {
		t.Fatalf("Grid() = %+v", g)
	}
	if g.Blocks[0].ID != c.BlockRows.BlockID {
		t.Errorf("block ID = %q, want %q", g.Blocks[0].ID, c.BlockRows.BlockID)
	}
	if g.Fields[1].Type != MultiSelect {
		t.Errorf("Fields[1].Type = %v", g.Fields[1].Type)
	}
	g.Fields[0].Name = "changed"
	if c.Fields[0].Name != "Title" {
		t.Error("Grid() shares fields with the context")
	}
}

func TestBuildGridContext_Validate(t *testing.T) {
	ids := &seqIDs{prefix: "id"}
	c := NewBuildGridContext(ids)
	c.BlockRows.BlockID = "other"
	if err := c.Validate(); err == nil {
		t.Error("Validate() accepted mismatched block IDs")
	}
	c = NewBuildGridContext(ids)
	c.Block.RowCount = 1
	if err := c.Validate(); err == nil {
		t.Error("Validate() accepted a count without rows")
	}
	if err := (&BuildGridContext{}).Validate(); err == nil {
		t.Error("Validate() accepted a context without block")
	}
}
