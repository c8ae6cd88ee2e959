package dsvar

import "testing"

func TestAddAndLookup(t *testing.T) {
	p := New()
	idx, err := p.Add("x1", 2.0)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx != 0 {
		t.Fatalf("first Add index = %d, want 0", idx)
	}
	if _, err := p.Add("x1", 3.0); err == nil {
		t.Fatalf("Add of duplicate name should fail")
	}
	v, ok := p.ValueOf("x1")
	if !ok || v != 2.0 {
		t.Fatalf("ValueOf(x1) = (%v, %v), want (2.0, true)", v, ok)
	}
	if !p.Has("x1") || p.Has("x2") {
		t.Fatalf("Has reported wrong membership")
	}
}

func TestAccessModeLifecycle(t *testing.T) {
	p := New()
	p.Add("x1", 1.0)
	if err := p.SetMode(ReadWrite); err != nil {
		t.Fatalf("SetMode(ReadWrite): %v", err)
	}
	if _, err := p.Add("x2", 1.0); err == nil {
		t.Fatalf("Add should fail once the pool is ReadWrite")
	}
	if err := p.SetValue("x1", 5.0); err != nil {
		t.Fatalf("SetValue in ReadWrite mode: %v", err)
	}
	if err := p.SetMode(ReadOnly); err != nil {
		t.Fatalf("SetMode(ReadOnly): %v", err)
	}
	if err := p.SetValue("x1", 9.0); err == nil {
		t.Fatalf("SetValue should fail once the pool is ReadOnly")
	}
	if err := p.SetMode(Locked); err != nil {
		t.Fatalf("SetMode(Locked): %v", err)
	}
	if err := p.SetMode(ReadWriteAdd); err == nil {
		t.Fatalf("SetMode should fail once the pool is Locked")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := New()
	p.Add("x1", 1.0)
	p.SetMode(Locked)

	clone := p.Clone()
	if clone.Mode() != ReadWriteAdd {
		t.Fatalf("Clone() mode = %v, want ReadWriteAdd", clone.Mode())
	}
	if _, err := clone.Add("x2", 2.0); err != nil {
		t.Fatalf("Add on clone: %v", err)
	}
	if p.Has("x2") {
		t.Fatalf("mutating the clone mutated the original")
	}
}

func TestEachVisitsInInsertionOrder(t *testing.T) {
	p := New()
	p.Add("a", 1)
	p.Add("b", 2)
	p.Add("c", 3)

	var names []string
	p.Each(func(i int, name string, v float64) {
		names = append(names, name)
		if p.ValueAt(i) != v {
			t.Fatalf("ValueAt(%d) = %v, want %v", i, p.ValueAt(i), v)
		}
	})
	want := []string{"a", "b", "c"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("Each order = %v, want %v", names, want)
		}
	}
}
