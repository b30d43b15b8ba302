package group

import (
	"github.com/vaultkit/toprf-dkg/group/ristretto"
)

// Share is a single Shamir share: (index, f(index)) for some degree-(t-1)
// polynomial f. Index 0 is reserved for "the secret itself" and is never
// produced by CreateShares or transmitted on the wire.
type Share struct {
	Index byte
	Value *ristretto.Scalar
}

// Clone returns a deep copy of s.
func (s *Share) Clone() *Share {
	return &Share{Index: s.Index, Value: s.Value.Clone()}
}

// Polynomial is a degree-(t-1) polynomial over the Ristretto255 scalar
// field, f(x) = coefficients[0] + coefficients[1]*x + ... ; coefficients[0]
// is the secret.
type Polynomial struct {
	Coefficients []*ristretto.Scalar
}

// NewRandomPolynomial draws a degree-(threshold-1) polynomial with the given
// constant term (the secret) and uniformly random higher coefficients.
func NewRandomPolynomial(threshold int, secret *ristretto.Scalar) (*Polynomial, error) {
	if threshold < 1 {
		return nil, ErrInvalidThreshold
	}
	coeffs := make([]*ristretto.Scalar, threshold)
	coeffs[0] = secret.Clone()
	for j := 1; j < threshold; j++ {
		c, err := ristretto.RandomScalar(nil)
		if err != nil {
			return nil, err
		}
		coeffs[j] = c
	}
	return &Polynomial{Coefficients: coeffs}, nil
}

// Evaluate computes f(x) via Horner's method, where x is an index embedded
// as a scalar via ristretto.ScalarFromUint64.
func (p *Polynomial) Evaluate(x byte) *ristretto.Scalar {
	xs := ristretto.ScalarFromUint64(uint64(x))
	result := p.Coefficients[len(p.Coefficients)-1].Clone()
	for i := len(p.Coefficients) - 2; i >= 0; i-- {
		result = ristretto.Mul(result, xs)
		result = ristretto.Add(result, p.Coefficients[i])
	}
	return result
}

// CommitmentVector returns the Feldman commitment vector C_0..C_{t-1}, where
// C_k = coefficients[k]·G.
func (p *Polynomial) CommitmentVector() []*ristretto.Point {
	out := make([]*ristretto.Point, len(p.Coefficients))
	for i, c := range p.Coefficients {
		out[i] = ristretto.ScalarMultBase(c)
	}
	return out
}

// CreateShares draws a fresh degree-(t-1) polynomial with constant term
// secret and returns n shares (indices 1..n) plus the Feldman commitment
// vector binding that polynomial.
func CreateShares(secret *ristretto.Scalar, n, t int) ([]*Share, []*ristretto.Point, error) {
	if t < 1 || t > n || n > 255 {
		return nil, nil, ErrInvalidThreshold
	}
	poly, err := NewRandomPolynomial(t, secret)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]*Share, n)
	for i := 1; i <= n; i++ {
		shares[i-1] = &Share{Index: byte(i), Value: poly.Evaluate(byte(i))}
	}
	return shares, poly.CommitmentVector(), nil
}

// VerifyShare checks a received share against its issuer's Feldman
// commitment vector: g^{share.Value} must equal ∏_k C_k^{index^k}.
func VerifyShare(share *Share, commitments []*ristretto.Point) bool {
	if share == nil || len(commitments) == 0 {
		return false
	}
	expected := ristretto.NewPoint()
	indexPower := ristretto.ScalarFromUint64(1)
	indexScalar := ristretto.ScalarFromUint64(uint64(share.Index))
	for _, c := range commitments {
		term, err := ristretto.ScalarMult(c, indexPower, false)
		if err != nil {
			return false
		}
		expected = ristretto.AddPoints(expected, term)
		indexPower = ristretto.Mul(indexPower, indexScalar)
	}
	actual := ristretto.ScalarMultBase(share.Value)
	return expected.Equal(actual)
}

// ReconstructScalar recovers the secret f(0) from >= t shares via Lagrange
// interpolation in the scalar field. This is a test/debug helper: the
// protocol itself never reconstructs the secret scalar directly, only in
// the exponent (see the toprf package).
func ReconstructScalar(shares []*Share) (*ristretto.Scalar, error) {
	if len(shares) == 0 {
		return nil, ErrInsufficientShares
	}
	indices := make([]byte, len(shares))
	for i, s := range shares {
		indices[i] = s.Index
	}
	secret := ristretto.NewScalar()
	for _, s := range shares {
		lambda, err := Coeff(s.Index, indices)
		if err != nil {
			return nil, err
		}
		secret = ristretto.Add(secret, ristretto.Mul(lambda, s.Value))
	}
	return secret, nil
}

// ReconstructPoint recovers g^f(0) from >= t (index, point) pairs via
// Lagrange interpolation in the exponent, without ever forming the secret
// scalar. points[i] is expected to equal shareValue_i·G for the
// corresponding index.
func ReconstructPoint(indices []byte, points []*ristretto.Point) (*ristretto.Point, error) {
	if len(indices) != len(points) || len(indices) == 0 {
		return nil, ErrInsufficientShares
	}
	result := ristretto.NewPoint()
	for i, idx := range indices {
		lambda, err := Coeff(idx, indices)
		if err != nil {
			return nil, err
		}
		term, err := ristretto.ScalarMult(points[i], lambda, false)
		if err != nil {
			return nil, err
		}
		result = ristretto.AddPoints(result, term)
	}
	return result, nil
}
