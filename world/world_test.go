package world

import (
	"testing"

	"github.com/evochora/evochora/molecule"
)

func TestToroidalWrap(t *testing.T) {
	g := New([]int{10, 10}, true)
	g.Set(Coord{9, 9}, molecule.New(molecule.Data, 7), 3)
	got := g.Get(Coord{-1, -1})
	if got.Value() != 7 {
		t.Fatalf("expected wraparound read to hit (9,9), got value %d", got.Value())
	}
	if g.GetOwner(Coord{19, 19}) != 3 {
		t.Fatalf("expected wraparound owner lookup to hit (9,9)")
	}
}

func TestBoundedOutOfRange(t *testing.T) {
	g := New([]int{4, 4}, false)
	ok := g.Set(Coord{4, 0}, molecule.New(molecule.Data, 1), 1)
	if ok {
		t.Fatal("expected out-of-bounds set to fail")
	}
	m := g.Get(Coord{4, 0})
	if !m.IsEmpty() {
		t.Fatal("expected out-of-bounds read to return empty molecule")
	}
}

func TestClearResetsOwner(t *testing.T) {
	g := New([]int{4}, false)
	g.Set(Coord{1}, molecule.New(molecule.Data, 5), 2)
	g.Clear(Coord{1})
	if g.GetOwner(Coord{1}) != 0 {
		t.Fatal("expected clear to reset owner to 0")
	}
	if !g.Get(Coord{1}).IsEmpty() {
		t.Fatal("expected clear to reset molecule to empty")
	}
}

func TestAccessible(t *testing.T) {
	cases := []struct {
		owner, actor, parent int
		want                 bool
	}{
		{0, 5, 4, true},
		{5, 5, 4, true},
		{4, 5, 4, true},
		{9, 5, 4, false},
	}
	for _, c := range cases {
		if got := Accessible(c.owner, c.actor, c.parent); got != c.want {
			t.Errorf("Accessible(%d,%d,%d) = %v, want %v", c.owner, c.actor, c.parent, got, c.want)
		}
	}
}

func TestNeighborsAxisAlignedCount(t *testing.T) {
	g := New([]int{5, 5, 5}, true)
	ns := g.NeighborsAxisAligned(Coord{2, 2, 2})
	if len(ns) != 6 {
		t.Fatalf("expected 6 neighbors in 3-D, got %d", len(ns))
	}
}

func TestIsUnitVector(t *testing.T) {
	if !IsUnitVector(Coord{1, 0, 0}) {
		t.Error("expected (1,0,0) to be a unit vector")
	}
	if IsUnitVector(Coord{1, 1, 0}) {
		t.Error("expected (1,1,0) to not be a unit vector")
	}
	if IsUnitVector(Coord{0, 0, 0}) {
		t.Error("expected zero vector to not be a unit vector")
	}
	if IsUnitVector(Coord{2, 0, 0}) {
		t.Error("expected magnitude-2 vector to not be a unit vector")
	}
}

func TestUnitVectorsOrder(t *testing.T) {
	vs := UnitVectors(2)
	want := []Coord{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	if len(vs) != len(want) {
		t.Fatalf("expected %d unit vectors, got %d", len(want), len(vs))
	}
	for i := range want {
		if !vs[i].Equal(want[i]) {
			t.Errorf("unit vector %d = %v, want %v", i, vs[i], want[i])
		}
	}
}
