package view

import (
	"testing"

	"github.com/eth2030/sszview/tree"
)

func historyFixture(t *testing.T) (*ContainerTypeDef, *ContainerView, *History) {
	t.Helper()
	td, err := ContainerType("Counter", []FieldDef{
		{Name: "a", Type: Uint64Type},
		{Name: "b", Type: Uint64Type},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := td.Default(nil).(*ContainerView)
	h := NewHistory(v.Backing())
	v.Hook = h.Hook(nil)
	return td, v, h
}

func TestHistoryRecordsRevisions(t *testing.T) {
	_, v, h := historyFixture(t)
	if h.Len() != 0 {
		t.Fatal("fresh history should be empty")
	}
	if err := v.SetField("a", Uint64View(1)); err != nil {
		t.Fatal(err)
	}
	if err := v.SetField("b", Uint64View(2)); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 2 {
		t.Fatalf("recorded %d revisions, want 2", h.Len())
	}
	// Revisions chain: each Prev is the previous Next.
	if h.Revision(1).Prev != h.Revision(0).Next {
		t.Error("revision chain broken")
	}
	if h.Head() != v.Backing() {
		t.Error("head should be the live backing")
	}
	if h.Backing(0).Root() == h.Head().Root() {
		t.Error("initial backing should differ from head after mutations")
	}
}

func TestHistoryDiffAt(t *testing.T) {
	_, v, h := historyFixture(t)
	if err := v.SetField("b", Uint64View(7)); err != nil {
		t.Fatal(err)
	}
	seq, err := h.DiffAt(0)
	if err != nil {
		t.Fatal(err)
	}
	var entries []tree.DiffEntry
	for e := range seq {
		entries = append(entries, e)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 differing subtree, got %d", len(entries))
	}
	if entries[0].Gindex != 3 {
		t.Errorf("diff at gindex %d, want 3 (field b)", entries[0].Gindex)
	}
	if _, err := h.DiffAt(5); err == nil {
		t.Error("out-of-range revision should fail")
	}
}

func TestTargetHistoryDeduplicates(t *testing.T) {
	_, v, h := historyFixture(t)
	// Mutate a, then b, then a again. The history of field a has three
	// distinct values (0, 1, 9); the b mutation must collapse away.
	if err := v.SetField("a", Uint64View(1)); err != nil {
		t.Fatal(err)
	}
	if err := v.SetField("b", Uint64View(2)); err != nil {
		t.Fatal(err)
	}
	if err := v.SetField("a", Uint64View(9)); err != nil {
		t.Fatal(err)
	}
	entries, err := h.TargetHistory(2) // field a
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 distinct values, got %d", len(entries))
	}
	wantBackings := []int{0, 1, 3}
	wantValues := []uint64{0, 1, 9}
	for i, e := range entries {
		if e.Backing != wantBackings[i] {
			t.Errorf("entry %d keyed by backing %d, want %d", i, e.Backing, wantBackings[i])
		}
		chunk := e.Node.Root()
		var got uint64
		for j := 0; j < 8; j++ {
			got |= uint64(chunk[j]) << (8 * j)
		}
		if got != wantValues[i] {
			t.Errorf("entry %d value %d, want %d", i, got, wantValues[i])
		}
	}
}

func TestTargetHistorySkipsPartialBackings(t *testing.T) {
	_, v, h := historyFixture(t)
	if err := v.SetField("a", Uint64View(1)); err != nil {
		t.Fatal(err)
	}
	// Collapse the whole backing in a later revision; field a is unreadable
	// there, so that revision is skipped while earlier entries survive.
	collapsed, err := tree.SummarizeInto(v.Backing(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.SetBacking(collapsed); err != nil {
		t.Fatal(err)
	}
	entries, err := h.TargetHistory(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 readable values, got %d", len(entries))
	}
}
