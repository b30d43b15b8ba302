package toprf

import (
	"testing"

	"github.com/vaultkit/toprf-dkg/group"
	"github.com/vaultkit/toprf-dkg/group/ristretto"
)

func TestEvaluateAndCombineMatchesDirect(t *testing.T) {
	secret, err := ristretto.RandomScalar(nil)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	shares, _, err := group.CreateShares(secret, 5, 3)
	if err != nil {
		t.Fatalf("CreateShares: %v", err)
	}

	blinded := ristretto.HashToPoint([]byte("hello"))

	// Any 3 of 5 servers should combine to the same alpha^k.
	subsetA := shares[:3]
	subsetB := []*group.Share{shares[1], shares[3], shares[4]}

	combinedA, err := combineSubset(subsetA, blinded)
	if err != nil {
		t.Fatalf("combineSubset A: %v", err)
	}
	combinedB, err := combineSubset(subsetB, blinded)
	if err != nil {
		t.Fatalf("combineSubset B: %v", err)
	}
	if !combinedA.Equal(combinedB) {
		t.Fatalf("two different honest subsets produced different combined outputs")
	}

	direct, err := ristretto.ScalarMult(blinded, secret, false)
	if err != nil {
		t.Fatalf("ristretto.ScalarMult: %v", err)
	}
	if !combinedA.Equal(direct) {
		t.Fatalf("combined output does not equal alpha^k computed directly")
	}
}

func combineSubset(shares []*group.Share, blinded *ristretto.Point) (*ristretto.Point, error) {
	indices := make([]byte, len(shares))
	for i, s := range shares {
		indices[i] = s.Index
	}
	partials := make([]*Partial, len(shares))
	for i, s := range shares {
		p, err := Evaluate(s.Value, blinded, s.Index, indices)
		if err != nil {
			return nil, err
		}
		partials[i] = p
	}
	return ThresholdCombine(partials)
}

func TestThresholdMultMatchesThresholdCombine(t *testing.T) {
	secret, _ := ristretto.RandomScalar(nil)
	shares, _, err := group.CreateShares(secret, 4, 2)
	if err != nil {
		t.Fatalf("CreateShares: %v", err)
	}
	blinded := ristretto.HashToPoint([]byte("world"))

	subset := shares[:2]
	indices := []byte{subset[0].Index, subset[1].Index}

	preMultiplied := make([]*Partial, 2)
	raw := make([]*Partial, 2)
	for i, s := range subset {
		p, err := Evaluate(s.Value, blinded, s.Index, indices)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		preMultiplied[i] = p
		raw[i] = RawEvaluate(s.Value, blinded, s.Index)
	}

	viaCombine, err := ThresholdCombine(preMultiplied)
	if err != nil {
		t.Fatalf("ThresholdCombine: %v", err)
	}
	viaMult, err := ThresholdMult(raw)
	if err != nil {
		t.Fatalf("ThresholdMult: %v", err)
	}
	if !viaCombine.Equal(viaMult) {
		t.Fatalf("ThresholdCombine and ThresholdMult disagree")
	}
}

func TestDuplicateIndexRejected(t *testing.T) {
	p := &Partial{Index: 1, Value: ristretto.NewPoint()}
	if _, err := ThresholdCombine([]*Partial{p, p}); err != ErrDuplicateIndex {
		t.Fatalf("expected ErrDuplicateIndex, got %v", err)
	}
}
