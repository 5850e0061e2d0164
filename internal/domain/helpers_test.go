package domain

import (
	"math"
	"testing"
)

func TestFieldIndexAndContains(t *testing.T) {
	dims := Field{X: 4, Y: 3}

	tests := []struct {
		name     string
		coord    Field
		wantIdx  uint32
		wantOK   bool
		contains bool
	}{
		{name: "origin", coord: Field{X: 0, Y: 0}, wantIdx: 0, wantOK: true, contains: true},
		{name: "last cell", coord: Field{X: 3, Y: 2}, wantIdx: 11, wantOK: true, contains: true},
		{name: "x past width wraps index but is out", coord: Field{X: 4, Y: 0}, wantIdx: 4, wantOK: true, contains: false},
		{name: "y past height", coord: Field{X: 0, Y: 3}, wantIdx: 12, wantOK: true, contains: false},
		{name: "overflow", coord: Field{X: 1, Y: math.MaxUint32}, wantOK: false, contains: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := dims.Index(tt.coord)
			if ok != tt.wantOK {
				t.Fatalf("Index(%+v) ok = %t, want %t", tt.coord, ok, tt.wantOK)
			}
			if ok && idx != tt.wantIdx {
				t.Fatalf("Index(%+v) = %d, want %d", tt.coord, idx, tt.wantIdx)
			}
			if got := dims.Contains(tt.coord); got != tt.contains {
				t.Fatalf("Contains(%+v) = %t, want %t", tt.coord, got, tt.contains)
			}
		})
	}
}

func TestFieldAreaSaturates(t *testing.T) {
	if got := (Field{X: 2, Y: 2}).Area(); got != 4 {
		t.Fatalf("Area() = %d, want 4", got)
	}
	if got := (Field{X: math.MaxUint32, Y: 2}).Area(); got != math.MaxUint32 {
		t.Fatalf("Area() = %d, want saturation", got)
	}
}

func TestFieldCoordRoundTrip(t *testing.T) {
	dims := Field{X: 5, Y: 7}
	for idx := uint32(0); idx < dims.Area(); idx++ {
		got, ok := dims.Index(dims.Coord(idx))
		if !ok || got != idx {
			t.Fatalf("Index(Coord(%d)) = %d (ok=%t)", idx, got, ok)
		}
	}
}

func TestSaturatingArithmetic(t *testing.T) {
	if got := SaturatingAdd(math.MaxUint64, 1); got != math.MaxUint64 {
		t.Fatalf("SaturatingAdd overflow = %d", got)
	}
	if got := SaturatingSub(3, 5); got != 0 {
		t.Fatalf("SaturatingSub underflow = %d", got)
	}
	if got := SaturatingMul(math.MaxUint64/2, 3); got != math.MaxUint64 {
		t.Fatalf("SaturatingMul overflow = %d", got)
	}
	if got := SaturatingMul(6, 7); got != 42 {
		t.Fatalf("SaturatingMul(6, 7) = %d, want 42", got)
	}
}

func TestClaimScoreGrowsWithRound(t *testing.T) {
	prev := uint64(0)
	for round := uint32(0); round < 10; round++ {
		got := ClaimScore(round)
		if got != uint64(round)+1 {
			t.Fatalf("ClaimScore(%d) = %d, want %d", round, got, round+1)
		}
		if got <= prev {
			t.Fatalf("ClaimScore not strictly increasing at round %d", round)
		}
		prev = got
	}
}
