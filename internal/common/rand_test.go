package common

import "testing"

func TestMakeRandHexString_Length(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 16, 32} {
		s, err := MakeRandHexString(size)
		if err != nil {
			t.Fatalf("MakeRandHexString(%d) error: %v", size, err)
		}
		if len(s) != size*2 {
			t.Fatalf("length mismatch: got %d want %d", len(s), size*2)
		}
	}
}

func TestMakeRandHexString_Unique(t *testing.T) {
	t.Parallel()

	a, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	b, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if a == b {
		t.Fatalf("expected two random strings to differ, both were %q", a)
	}
}
