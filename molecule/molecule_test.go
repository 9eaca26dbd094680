package molecule

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		typ Type
		val int
	}{
		{Code, 0},
		{Data, 1},
		{Data, -1},
		{Energy, 1<<23 - 1},
		{Energy, -(1 << 23)},
		{Structure, 12345},
	}
	for _, c := range cases {
		m := New(c.typ, c.val)
		got := FromInt(m.ToInt())
		if got.Type() != m.Type() || got.Value() != m.Value() {
			t.Errorf("round trip broke for (%v,%d): got (%v,%d)", c.typ, c.val, got.Type(), got.Value())
		}
	}
}

func TestWrapAround(t *testing.T) {
	m := New(Data, 1<<23) // one past max positive
	if m.Value() != -(1 << 23) {
		t.Errorf("expected wrap to %d, got %d", -(1 << 23), m.Value())
	}
}

func TestIsEmpty(t *testing.T) {
	if !New(Code, 0).IsEmpty() {
		t.Error("CODE:0 should be empty")
	}
	if New(Data, 0).IsEmpty() {
		t.Error("DATA:0 should not be empty")
	}
	if New(Code, 1).IsEmpty() {
		t.Error("CODE:1 should not be empty")
	}
}

func TestAddSubWrap(t *testing.T) {
	a := New(Data, (1<<23)-1)
	b := New(Data, 1)
	sum := Add(a, b)
	if sum.Value() != -(1 << 23) {
		t.Errorf("expected wraparound sum %d, got %d", -(1 << 23), sum.Value())
	}
	diff := Sub(New(Data, 5), New(Data, 10))
	if diff.Value() != -5 {
		t.Errorf("expected -5, got %d", diff.Value())
	}
}
