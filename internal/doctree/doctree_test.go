package doctree

import "testing"

func sampleTree() []*Node {
	return []*Node{
		{Title: "Basics", Children: []*Node{{Title: "Intro"}, {Title: "Setup"}}},
		{Title: "Practice", Children: []*Node{{Title: "Walkthrough", Children: []*Node{{Title: "Deep"}}}}},
	}
}

func TestRenumberAssignsPositionalNumbers(t *testing.T) {
	toc := sampleTree()
	Renumber(toc)

	want := []struct {
		number string
		level  int
	}{{"1", 1}, {"1.1", 2}, {"1.2", 2}, {"2", 1}, {"2.1", 2}, {"2.1.1", 3}}

	i := 0
	Walk(toc, func(n, _ *Node) bool {
		if n.Number != want[i].number {
			t.Errorf("node %q: expected number %q, got %q", n.Title, want[i].number, n.Number)
		}
		if n.Level != want[i].level {
			t.Errorf("node %q: expected level %d, got %d", n.Title, want[i].level, n.Level)
		}
		i++
		return true
	})
	if i != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), i)
	}
}

func TestRenumberIsIdempotent(t *testing.T) {
	toc := sampleTree()
	Renumber(toc)
	first := TOCString(toc)
	Renumber(toc)
	second := TOCString(toc)
	if first != second {
		t.Errorf("expected identical numbering, got:\n%s\nvs\n%s", first, second)
	}
}

func TestFindReturnsParent(t *testing.T) {
	toc := sampleTree()
	Renumber(toc)

	n, p := Find(toc, "2.1.1")
	if n == nil || n.Title != "Deep" {
		t.Fatalf("expected to find Deep, got %+v", n)
	}
	if p == nil || p.Title != "Walkthrough" {
		t.Errorf("expected parent Walkthrough, got %+v", p)
	}
	if n, _ := Find(toc, "9"); n != nil {
		t.Errorf("expected nil for missing number, got %+v", n)
	}
	if top := TopLevel(toc, "2.1.1"); top == nil || top.Title != "Practice" {
		t.Errorf("expected top-level Practice, got %+v", top)
	}
}

func TestTreeMetrics(t *testing.T) {
	toc := sampleTree()
	Renumber(toc)
	if got := Count(toc); got != 6 {
		t.Errorf("expected 6 nodes, got %d", got)
	}
	if got := MaxDepth(toc); got != 3 {
		t.Errorf("expected depth 3, got %d", got)
	}
	leaves := Leaves(toc)
	if len(leaves) != 3 || leaves[2].Number != "2.1.1" {
		t.Errorf("unexpected leaves: %+v", leaves)
	}
}

func TestTOCString(t *testing.T) {
	toc := sampleTree()
	Renumber(toc)
	want := "1 Basics\n  1.1 Intro\n  1.2 Setup\n2 Practice\n  2.1 Walkthrough\n    2.1.1 Deep\n"
	if got := TOCString(toc); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParsePlacement(t *testing.T) {
	cases := map[string]string{
		"start":          "start",
		"END":            "end",
		"after_para:2":   "after_para:2",
		"before_para: 3": "before_para:3",
		"before_para:0":  "end",
		"somewhere":      "end",
	}
	for in, want := range cases {
		if got := ParsePlacement(in); got != want {
			t.Errorf("ParsePlacement(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestDiagramMarker(t *testing.T) {
	d := Diagram{Name: "Flow", Format: ParseFormat("Mermaid"), Placement: "end"}
	want := "[Diagram: Flow (mermaid, end)]"
	if got := d.Marker(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	odd := Diagram{Name: "Odd", Placement: "somewhere"}
	if got := odd.Marker(); got != "[Diagram: Odd (text, end)]" {
		t.Errorf("expected normalized marker, got %q", got)
	}
	if ParseFormat("ascii") != FormatText {
		t.Errorf("expected unknown format to map to text")
	}
}
