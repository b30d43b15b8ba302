package toprf

import (
	"github.com/vaultkit/toprf-dkg/group"
	"github.com/vaultkit/toprf-dkg/group/ristretto"
)

// Partial is a single server's contribution to a threshold OPRF evaluation:
// an index (which share holder produced it) and a group element.
type Partial struct {
	Index byte
	Value *ristretto.Point
}

// Evaluate computes server i's pre-multiplied partial evaluation of a
// client's blinded element. It folds the Lagrange coefficient λ_i(indices)
// into the server-side exponent before exponentiating, so that the
// combiner (ThresholdCombine) only needs plain point addition:
//
//	k_i' = k_i · λ_i(indices)
//	β_i  = blinded^{k_i'}
//
// indices is the full set of server indices participating in this query
// (including self); self must be a member of indices.
func Evaluate(keyShare *ristretto.Scalar, blinded *ristretto.Point, self byte, indices []byte) (*Partial, error) {
	lambda, err := group.Coeff(self, indices)
	if err != nil {
		return nil, err
	}
	kPrime := ristretto.Mul(keyShare, lambda)
	beta, err := ristretto.ScalarMult(blinded, kPrime, false)
	if err != nil {
		return nil, err
	}
	return &Partial{Index: self, Value: beta}, nil
}

// ThresholdCombine sums pre-multiplied partials produced by Evaluate. The
// result equals blinded^k, where k is the secret reconstructed (in the
// exponent) from the underlying shares.
func ThresholdCombine(responses []*Partial) (*ristretto.Point, error) {
	if len(responses) == 0 {
		return nil, ErrNoResponses
	}
	if err := checkDistinct(responses); err != nil {
		return nil, err
	}
	result := ristretto.NewPoint()
	for _, r := range responses {
		result = ristretto.AddPoints(result, r.Value)
	}
	return result, nil
}

// RawEvaluate computes server i's un-multiplied partial evaluation
// γ_i = blinded^{k_i}, without folding in any Lagrange coefficient. Used
// together with ThresholdMult, the combiner-side variant that applies the
// Lagrange weighting at combine time instead of at evaluation time.
func RawEvaluate(keyShare *ristretto.Scalar, blinded *ristretto.Point, self byte) *Partial {
	gamma, _ := ristretto.ScalarMult(blinded, keyShare, false)
	return &Partial{Index: self, Value: gamma}
}

// ThresholdMult combines un-multiplied partials (see RawEvaluate),
// computing Σ γ_i^{λ_i(indices)}. Returns ristretto.ErrIdentityResult if
// any intermediate scalar multiplication yields the identity element.
func ThresholdMult(responses []*Partial) (*ristretto.Point, error) {
	if len(responses) == 0 {
		return nil, ErrNoResponses
	}
	if err := checkDistinct(responses); err != nil {
		return nil, err
	}
	indices := make([]byte, len(responses))
	for i, r := range responses {
		indices[i] = r.Index
	}

	result := ristretto.NewPoint()
	for _, r := range responses {
		lambda, err := group.Coeff(r.Index, indices)
		if err != nil {
			return nil, err
		}
		weighted, err := ristretto.ScalarMult(r.Value, lambda, true)
		if err != nil {
			return nil, err
		}
		result = ristretto.AddPoints(result, weighted)
	}
	return result, nil
}

func checkDistinct(responses []*Partial) error {
	seen := make(map[byte]bool, len(responses))
	for _, r := range responses {
		if seen[r.Index] {
			return ErrDuplicateIndex
		}
		seen[r.Index] = true
	}
	return nil
}
