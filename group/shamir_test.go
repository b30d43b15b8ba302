package group

import (
	"testing"

	"github.com/vaultkit/toprf-dkg/group/ristretto"
)

func TestCreateSharesAndReconstruct(t *testing.T) {
	secret, err := ristretto.RandomScalar(nil)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}

	shares, commitments, err := CreateShares(secret, 5, 3)
	if err != nil {
		t.Fatalf("CreateShares: %v", err)
	}
	if len(shares) != 5 {
		t.Fatalf("expected 5 shares, got %d", len(shares))
	}

	for _, s := range shares {
		if !VerifyShare(s, commitments) {
			t.Fatalf("share %d failed Feldman verification", s.Index)
		}
	}

	// Any 3 of the 5 shares must reconstruct the same secret.
	subset := shares[:3]
	got, err := ReconstructScalar(subset)
	if err != nil {
		t.Fatalf("ReconstructScalar: %v", err)
	}
	if !got.Equal(secret) {
		t.Fatalf("reconstructed secret does not match original")
	}

	subset2 := []*Share{shares[1], shares[3], shares[4]}
	got2, err := ReconstructScalar(subset2)
	if err != nil {
		t.Fatalf("ReconstructScalar: %v", err)
	}
	if !got2.Equal(secret) {
		t.Fatalf("second subset reconstructed a different secret")
	}
}

func TestCoeffSingletonIsOne(t *testing.T) {
	c, err := Coeff(5, []byte{5})
	if err != nil {
		t.Fatalf("Coeff: %v", err)
	}
	one := ristretto.ScalarFromUint64(1)
	if !c.Equal(one) {
		t.Fatalf("Coeff(i,{i}) should be 1")
	}
}

func TestCoeffsSumToOne(t *testing.T) {
	sum, err := SumCoeffs([]byte{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("SumCoeffs: %v", err)
	}
	one := ristretto.ScalarFromUint64(1)
	if !sum.Equal(one) {
		t.Fatalf("coefficients over a t-set should sum to 1")
	}
}

func TestVerifyShareRejectsTamperedValue(t *testing.T) {
	secret, _ := ristretto.RandomScalar(nil)
	shares, commitments, err := CreateShares(secret, 4, 2)
	if err != nil {
		t.Fatalf("CreateShares: %v", err)
	}

	tampered := shares[0].Clone()
	tampered.Value = ristretto.Add(tampered.Value, ristretto.ScalarFromUint64(1))

	if VerifyShare(tampered, commitments) {
		t.Fatalf("tampered share should fail verification")
	}
}

func TestInvalidThreshold(t *testing.T) {
	secret, _ := ristretto.RandomScalar(nil)
	if _, _, err := CreateShares(secret, 3, 5); err != ErrInvalidThreshold {
		t.Fatalf("expected ErrInvalidThreshold, got %v", err)
	}
}
