package ristretto

import "testing"

func TestScalarAddSubInverse(t *testing.T) {
	a, err := RandomScalar(nil)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	b, err := RandomScalar(nil)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}

	sum := Add(a, b)
	back := Sub(sum, b)
	if !back.Equal(a) {
		t.Fatalf("Sub(Add(a,b),b) != a")
	}

	inv, err := Inverse(a)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	one := Mul(a, inv)
	if one.IsZero() {
		t.Fatalf("a * a^-1 should not be zero")
	}
}

func TestScalarInverseOfZero(t *testing.T) {
	zero := NewScalar()
	if _, err := Inverse(zero); err != ErrZeroScalar {
		t.Fatalf("expected ErrZeroScalar, got %v", err)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	s, err := RandomScalar(nil)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	b := s.Bytes()
	back, err := ScalarFromCanonicalBytes(b)
	if err != nil {
		t.Fatalf("ScalarFromCanonicalBytes: %v", err)
	}
	if !back.Equal(s) {
		t.Fatalf("round trip mismatch")
	}
}

func TestScalarFromCanonicalBytesRejectsNonCanonical(t *testing.T) {
	// All-0xff bytes is far larger than the group order l and reduces to a
	// different value, so it must be rejected rather than silently wrapped.
	b := make([]byte, ScalarSize)
	for i := range b {
		b[i] = 0xff
	}
	if _, err := ScalarFromCanonicalBytes(b); err != ErrInvalidScalarEncoding {
		t.Fatalf("expected ErrInvalidScalarEncoding, got %v", err)
	}
}

func TestScalarFromUint64EmbedsLowByte(t *testing.T) {
	s := ScalarFromUint64(7)
	b := s.Bytes()
	if b[0] != 7 {
		t.Fatalf("expected low byte 7, got %d", b[0])
	}
	for i := 1; i < len(b); i++ {
		if b[i] != 0 {
			t.Fatalf("expected zero byte at %d, got %d", i, b[i])
		}
	}
}
