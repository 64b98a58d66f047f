package histotune

import (
	"testing"
)

func TestCountPolicyBinRange(t *testing.T) {
	p := CountPolicy{K: AtomicAdd}
	for _, h := range []int{1, 2, 127, 4096} {
		for _, x := range []int32{0, 1, 255, 1 << 30, 0x7fffffff} {
			idx, v := p.Bin(h, x)
			if idx < 0 || idx >= h {
				t.Fatalf("Bin(%d, %d) index %d out of range", h, x, idx)
			}
			if v != 1 {
				t.Fatalf("Bin(%d, %d) value %d, want 1", h, x, v)
			}
		}
	}
}

func TestSumPolicyValuesAreQuarterMultiples(t *testing.T) {
	p := SumPolicy{K: AtomicCAS}
	for _, x := range []int32{0, 1, 2, 3, 4, 100, 0x7fffffff} {
		_, v := p.Bin(16, x)
		if v*4 != float32(int32(v*4)) {
			t.Fatalf("Bin value %v is not an exact quarter multiple", v)
		}
		if v < 0 || v > 0.75 {
			t.Fatalf("Bin value %v out of range", v)
		}
	}
}

func TestMaxPolicyCombine(t *testing.T) {
	p := MaxPolicy{}
	if got := p.Combine(3, 7); got != 7 {
		t.Errorf("Combine(3,7) = %d", got)
	}
	if got := p.Combine(7, 3); got != 7 {
		t.Errorf("Combine(7,3) = %d", got)
	}
	if p.Kind() != AtomicXchg {
		t.Errorf("max should classify as exchange-based, got %v", p.Kind())
	}
}

func TestParseAtomicKind(t *testing.T) {
	cases := []struct {
		in   string
		want AtomicKind
		ok   bool
	}{
		{"add", AtomicAdd, true},
		{"cas", AtomicCAS, true},
		{"xcg", AtomicXchg, true},
		{"swap", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, err := ParseAtomicKind(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("ParseAtomicKind(%q) = %v, %v", c.in, got, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ParseAtomicKind(%q) should have failed", c.in)
		}
	}
}

func TestAtomicKindString(t *testing.T) {
	for _, k := range []AtomicKind{AtomicAdd, AtomicCAS, AtomicXchg} {
		if k.String() == "unknown" {
			t.Errorf("kind %d has no name", k)
		}
		back, err := ParseAtomicKind(k.String())
		if err != nil || back != k {
			t.Errorf("round trip failed for %v", k)
		}
	}
}
