package group

import "github.com/vaultkit/toprf-dkg/group/ristretto"

// Coeff computes the Lagrange coefficient λ_i for index i with respect to
// the index set indices, over the Ristretto255 scalar field:
//
//	λ_i = ∏_{j ∈ indices, j≠i} j · (j−i)^-1
//
// Indices are embedded as scalars by placing the raw byte value in the
// low-order byte of the scalar encoding, matching the wire convention for
// share and partial indices (1..255; index 0 is reserved for the secret
// itself and never appears here).
func Coeff(i byte, indices []byte) (*ristretto.Scalar, error) {
	if len(indices) == 0 {
		return nil, ErrEmptyIndices
	}
	if err := checkDistinctContains(i, indices); err != nil {
		return nil, err
	}

	iScalar := ristretto.ScalarFromUint64(uint64(i))
	divident := ristretto.ScalarFromUint64(1)
	divisor := ristretto.ScalarFromUint64(1)

	for _, j := range indices {
		if j == i {
			continue
		}
		jScalar := ristretto.ScalarFromUint64(uint64(j))
		divident = ristretto.Mul(divident, jScalar)
		diff := ristretto.Sub(jScalar, iScalar)
		divisor = ristretto.Mul(divisor, diff)
	}

	invDivisor, err := ristretto.Inverse(divisor)
	if err != nil {
		return nil, err
	}
	return ristretto.Mul(invDivisor, divident), nil
}

// SumCoeffs sums Coeff(i, indices) for every i in indices; used by tests to
// verify the "coefficients over a t-set sum to 1" invariant.
func SumCoeffs(indices []byte) (*ristretto.Scalar, error) {
	sum := ristretto.NewScalar()
	for _, i := range indices {
		c, err := Coeff(i, indices)
		if err != nil {
			return nil, err
		}
		sum = ristretto.Add(sum, c)
	}
	return sum, nil
}

func checkDistinctContains(i byte, indices []byte) error {
	seen := make(map[byte]bool, len(indices))
	found := false
	for _, j := range indices {
		if seen[j] {
			return ErrDuplicateIndex
		}
		seen[j] = true
		if j == i {
			found = true
		}
	}
	if !found {
		return ErrIndexNotInSet
	}
	return nil
}
