package arena

import (
	"testing"
)

type slot struct {
	v int
}

func TestAllocStable(t *testing.T) {
	p := New[slot](2)

	i1, s1 := p.Alloc()
	s1.v = 1
	i2, s2 := p.Alloc()
	s2.v = 2

	if i1 == i2 {
		t.Fatalf("expected distinct indexes, got %v == %v", i1, i2)
	}
	if i1 == noIndex || i2 == noIndex {
		t.Fatalf("allocated index collided with the no-slot sentinel")
	}

	// force growth past the hinted capacity
	for i := 0; i < 64; i++ {
		p.Alloc()
	}

	if p.At(i1).v != 1 {
		t.Errorf("slot 1 corrupted by growth: got %v", p.At(i1).v)
	}
	if p.At(i2).v != 2 {
		t.Errorf("slot 2 corrupted by growth: got %v", p.At(i2).v)
	}
}

func TestLen(t *testing.T) {
	p := New[slot](4)
	if p.Len() != 0 {
		t.Errorf("expected 0, got %v", p.Len())
	}
	p.Alloc()
	p.Alloc()
	if p.Len() != 2 {
		t.Errorf("expected 2, got %v", p.Len())
	}
}

func TestReset(t *testing.T) {
	p := New[slot](4)
	p.Alloc()
	p.Alloc()
	p.Reset()
	if p.Len() != 0 {
		t.Errorf("expected 0 after reset, got %v", p.Len())
	}
	idx, s := p.Alloc()
	s.v = 7
	if p.At(idx).v != 7 {
		t.Errorf("expected 7, got %v", p.At(idx).v)
	}
}
