package tpdkg

import (
	"crypto/ed25519"

	"github.com/vaultkit/toprf-dkg/group/ristretto"
)

// Step identifies a point in the linear TP-DKG state machine. Values are
// not contiguous: several administrative sub-exchanges are collapsed into a
// single Next() call, but the externally load-bearing checkpoints keep
// their canonical numbers (session start at 0, share delivery carried in a
// message shaped "msg8", and complaint adjudication at step 18).
type Step int

const (
	StepStart               Step = 0
	StepIdentityBroadcast   Step = 1
	StepCommitmentBroadcast Step = 2
	StepHandshakeInit       Step = 3
	StepHandshakeRespond    Step = 4
	StepShareDelivery       Step = 8
	StepComplaintBroadcast  Step = 10
	StepComplaintAggregate  Step = 11
	StepKeyRevealDemand     Step = 12
	StepKeyRevealSubmit     Step = 13
	StepAdjudication        Step = 18
	StepTranscriptCompare   Step = 20
	StepDone                Step = 21
)

// PeerIdentity is the public identity a peer broadcasts at StepIdentityBroadcast:
// its per-session Ed25519 signing key and Curve25519 handshake static key.
type PeerIdentity struct {
	Index              byte
	SessionSigningPub  ed25519.PublicKey
	HandshakeStaticPub []byte
}

// CommitmentEntry is one peer's Feldman commitment vector, broadcast at
// StepCommitmentBroadcast. Each element is a 32-byte Ristretto255 point
// encoding.
type CommitmentEntry struct {
	PeerIndex   byte
	Commitments [][]byte
}

// HandshakeEnvelope carries one Noise handshake message between an ordered
// pair of peers, relayed by the TP.
type HandshakeEnvelope struct {
	From    byte
	To      byte
	Message []byte
}

// ShareDeliveryEntry carries one peer-to-peer encrypted share, relayed by
// the TP at StepShareDelivery. Payload is encoded per wire.Msg8.
type ShareDeliveryEntry struct {
	From    byte
	To      byte
	Payload []byte
}

// ComplaintEntry is one peer's signed complaint bitset, broadcast at
// StepComplaintBroadcast. Against[j] is true iff the peer complains about
// the share it received from peer j.
type ComplaintEntry struct {
	From    byte
	Against []bool
}

// KeyRevealEntry carries an accused peer's revealed handshake session key
// material for a specific complained-about pair.
type KeyRevealEntry struct {
	From   byte // the accused peer revealing
	To     byte // the peer whose complaint this answers
	MACKey []byte
	Seed   []byte
}

func encodeCommitmentVector(points []*ristretto.Point) [][]byte {
	out := make([][]byte, len(points))
	for i, p := range points {
		out[i] = p.Bytes()
	}
	return out
}

func decodeCommitmentVector(raw [][]byte) ([]*ristretto.Point, error) {
	out := make([]*ristretto.Point, len(raw))
	for i, b := range raw {
		p, err := ristretto.PointFromCanonicalBytes(b)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
