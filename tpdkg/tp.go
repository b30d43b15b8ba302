package tpdkg

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/gob"
	"hash"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/vaultkit/toprf-dkg/channel"
	"github.com/vaultkit/toprf-dkg/group"
	"github.com/vaultkit/toprf-dkg/group/ristretto"
	"github.com/vaultkit/toprf-dkg/identity"
	"github.com/vaultkit/toprf-dkg/internal/security"
	"github.com/vaultkit/toprf-dkg/logger"
	"github.com/vaultkit/toprf-dkg/wire"
)

// TPConfig configures a TPState. No environment variables or persistent
// state are read; callers build this struct directly (see spec §6
// "Configuration").
type TPConfig struct {
	N, T int
	// Epsilon is the freshness window, in seconds.
	Epsilon uint64
	// DST is the domain-separation tag mixed into msg0.
	DST []byte
	// PeerLongTermPubKeys are the n peers' long-term Ed25519 public keys,
	// known to the TP in advance.
	PeerLongTermPubKeys []ed25519.PublicKey
	// Rand is the source of cryptographic randomness; defaults to
	// crypto/rand.Reader.
	Rand io.Reader
	// Logger is optional; if nil, logger.New(logger.DefaultConfig()) is
	// used, which writes info-level JSON lines to stdout.
	Logger *logger.Logger
}

// Validate checks the configuration is well formed.
func (c *TPConfig) Validate() error {
	if err := security.ValidateThreshold(c.T, c.N); err != nil {
		return ErrInvalidConfig
	}
	if c.N > 255 {
		return ErrInvalidConfig
	}
	if len(c.PeerLongTermPubKeys) != c.N {
		return ErrInvalidConfig
	}
	return nil
}

// TPState drives n peers through the TP-DKG protocol: it broadcasts
// configuration and commitments, relays the secure-channel handshake and
// share-delivery meshes, aggregates complaints, adjudicates disputes, and
// compares final transcripts (component G).
type TPState struct {
	cfg       TPConfig
	step      Step
	sessionID [32]byte
	sessionKP *identity.KeyPair

	peerIdentities  map[byte]*PeerIdentity
	commitments     map[byte]*CommitmentEntry
	shareDeliveries map[pairKey]*wire.Msg8
	complaints      map[byte]*ComplaintEntry
	keyReveals      map[pairKey]*KeyRevealEntry

	ledger *CheaterLedger
	// transcript hashes only the TP's own broadcasts (every peer observes
	// the identical byte sequence), not the pairwise handshake or
	// share-delivery relay traffic, which differs per recipient.
	transcript hash.Hash
	lastTS     map[byte]uint64

	log *logger.Logger
}

// pairKey identifies an ordered (from,to) peer pair.
type pairKey struct{ From, To byte }

// NewTPState allocates a fresh TP-DKG session for n peers with threshold t.
// Buffers are allocated internally from (n,t) — the idiomatic Go rendering
// of the reference implementation's caller-provided set_bufs pattern (see
// spec §9's "owning constructor" option).
func NewTPState(cfg TPConfig) (*TPState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New(logger.DefaultConfig())
	}

	sessionKP, err := identity.Generate(cfg.Rand)
	if err != nil {
		return nil, err
	}

	th, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}

	return &TPState{
		cfg:             cfg,
		step:            StepStart,
		sessionKP:       sessionKP,
		peerIdentities:  make(map[byte]*PeerIdentity),
		commitments:     make(map[byte]*CommitmentEntry),
		shareDeliveries: make(map[pairKey]*wire.Msg8),
		complaints:      make(map[byte]*ComplaintEntry),
		keyReveals:      make(map[pairKey]*KeyRevealEntry),
		ledger:          NewCheaterLedger(cfg.T),
		transcript:      th,
		lastTS:          make(map[byte]uint64),
		log:             log,
	}, nil
}

// Step reports the engine's current step.
func (tp *TPState) Step() Step { return tp.step }

// NotDone reports whether the engine has more steps to run.
func (tp *TPState) NotDone() bool { return tp.step != StepDone }

// SessionID returns the session identifier, valid once Next has advanced
// past StepStart.
func (tp *TPState) SessionID() [32]byte { return tp.sessionID }

// Ledger exposes the cheater ledger for inspection, typically once
// NotDone() is false.
func (tp *TPState) Ledger() *CheaterLedger { return tp.ledger }

// Outcome reports whether the protocol succeeded: the cheater ledger must
// be empty and not have overflowed.
func (tp *TPState) Outcome() error {
	if tp.ledger.Full() || !tp.ledger.Empty() {
		return ErrProtocolFailed
	}
	return nil
}

func (tp *TPState) now() uint64 { return uint64(time.Now().Unix()) }

func (tp *TPState) appendTranscript(b []byte) { tp.transcript.Write(b) }

func (tp *TPState) broadcast(typ byte, payload []byte) []byte {
	msg, err := wire.NewMessage(typ, wire.RecipientTP, wire.RecipientBroadcast, tp.now(), tp.sessionID, payload, tp.sessionKP.Private)
	if err != nil {
		panic(err) // payload size is bounded well under uint32; indicates a programming error
	}
	raw := msg.Serialize()
	tp.appendTranscript(raw)
	return raw
}

// validatePeerMessage runs the staged checks from wire.Message.Validate
// against a specific peer's signing key, updating lastTS bookkeeping.
func (tp *TPState) validatePeerMessage(raw []byte, expectedType, peerIndex byte, signingKey ed25519.PublicKey) (*wire.Message, wire.FramingError) {
	msg, err := wire.DeserializeMessage(raw)
	if err != nil {
		return nil, wire.LenErr
	}
	ctx := wire.ValidationContext{
		ExpectedType:     expectedType,
		ExpectedFrom:     peerIndex,
		Self:             wire.RecipientTP,
		Now:              tp.now(),
		Epsilon:          tp.cfg.Epsilon,
		LastAcceptedTS:   tp.lastTS[peerIndex],
		SenderSessionKey: signingKey,
	}
	if fe := msg.Validate(ctx); fe != wire.NoFramingError {
		return nil, fe
	}
	tp.lastTS[peerIndex] = msg.Header.Timestamp
	return msg, wire.NoFramingError
}

// Next advances the engine by one step. in carries each peer's message for
// the current step, keyed by peer index; the returned broadcast is
// non-nil when the step result is a single broadcast message, and perPeer
// is non-nil when the step addresses each recipient individually.
func (tp *TPState) Next(in map[byte][]byte) (broadcast []byte, perPeer map[byte][]byte, err error) {
	if !tp.NotDone() {
		return nil, nil, ErrAlreadyDone
	}

	switch tp.step {
	case StepStart:
		if _, err := io.ReadFull(tp.cfg.Rand, tp.sessionID[:]); err != nil {
			return nil, nil, err
		}
		dstHash := blake2b.Sum512(tp.cfg.DST)
		m0 := &wire.Msg0{N: byte(tp.cfg.N), T: byte(tp.cfg.T)}
		copy(m0.DSTHash[:], dstHash[:])
		copy(m0.TPSessionPubKey[:], tp.sessionKP.Public)
		out := tp.broadcast(byte(StepStart), m0.MarshalBinary())
		tp.step = StepIdentityBroadcast
		tp.log.Info("tpdkg: session started")
		return out, nil, nil

	case StepIdentityBroadcast:
		identities := make([]PeerIdentity, 0, tp.cfg.N)
		for i := byte(1); i <= byte(tp.cfg.N); i++ {
			raw, ok := in[i]
			if !ok {
				return nil, nil, ErrMissingPeerData
			}
			msg, fe := tp.validatePeerMessage(raw, byte(StepIdentityBroadcast), i, tp.cfg.PeerLongTermPubKeys[i-1])
			if fe != wire.NoFramingError {
				return nil, nil, fe
			}
			var pi PeerIdentity
			if err := gobDecode(msg.Payload, &pi); err != nil {
				return nil, nil, ErrDecodePayload
			}
			pi.Index = i
			tp.peerIdentities[i] = &pi
			identities = append(identities, pi)
		}
		out := tp.broadcast(byte(StepIdentityBroadcast), gobEncode(identities))
		tp.step = StepCommitmentBroadcast
		return out, nil, nil

	case StepCommitmentBroadcast:
		entries := make([]CommitmentEntry, 0, tp.cfg.N)
		for i := byte(1); i <= byte(tp.cfg.N); i++ {
			raw, ok := in[i]
			if !ok {
				return nil, nil, ErrMissingPeerData
			}
			msg, fe := tp.validatePeerMessage(raw, byte(StepCommitmentBroadcast), i, tp.peerIdentities[i].SessionSigningPub)
			if fe != wire.NoFramingError {
				return nil, nil, fe
			}
			var ce CommitmentEntry
			if err := gobDecode(msg.Payload, &ce); err != nil {
				return nil, nil, ErrDecodePayload
			}
			if len(ce.Commitments) != tp.cfg.T {
				return nil, nil, wire.LenErr
			}
			ce.PeerIndex = i
			tp.commitments[i] = &ce
			entries = append(entries, ce)
		}
		out := tp.broadcast(byte(StepCommitmentBroadcast), gobEncode(entries))
		tp.step = StepHandshakeInit
		return out, nil, nil

	case StepHandshakeInit, StepHandshakeRespond:
		return tp.relayHandshakeRound(in)

	case StepShareDelivery:
		return tp.relayShareDelivery(in)

	case StepComplaintBroadcast:
		return tp.collectComplaints(in)

	case StepKeyRevealDemand:
		return tp.demandKeyReveals()

	case StepKeyRevealSubmit:
		return tp.collectKeyReveals(in)

	case StepAdjudication:
		return tp.adjudicate()

	case StepTranscriptCompare:
		return tp.compareTranscripts(in)
	}

	return nil, nil, ErrOutOfOrderStep
}

func (tp *TPState) relayHandshakeRound(in map[byte][]byte) ([]byte, map[byte][]byte, error) {
	grouped := make(map[byte][]HandshakeEnvelope)
	for from, raw := range in {
		if len(raw) == 0 {
			continue
		}
		var envs []HandshakeEnvelope
		if err := gobDecode(raw, &envs); err != nil {
			return nil, nil, ErrDecodePayload
		}
		for _, e := range envs {
			if e.From != from {
				return nil, nil, wire.FromErr
			}
			grouped[e.To] = append(grouped[e.To], e)
		}
	}
	perPeer := make(map[byte][]byte, len(grouped))
	for to, envs := range grouped {
		perPeer[to] = gobEncode(envs)
	}
	switch tp.step {
	case StepHandshakeInit:
		tp.step = StepHandshakeRespond
	case StepHandshakeRespond:
		tp.step = StepShareDelivery
	}
	return nil, perPeer, nil
}

func (tp *TPState) relayShareDelivery(in map[byte][]byte) ([]byte, map[byte][]byte, error) {
	grouped := make(map[byte][]ShareDeliveryEntry)
	for from, raw := range in {
		var entries []ShareDeliveryEntry
		if err := gobDecode(raw, &entries); err != nil {
			return nil, nil, ErrDecodePayload
		}
		for _, e := range entries {
			if e.From != from {
				return nil, nil, wire.FromErr
			}
			m8, err := wire.UnmarshalMsg8(e.Payload)
			if err != nil {
				tp.ledger.Record(int(StepShareDelivery), wire.ShareDeliveryCheaterCode(wire.LenErr), e.From, wire.NoReporter, e.To)
				continue
			}
			tp.shareDeliveries[pairKey{e.From, e.To}] = m8
			grouped[e.To] = append(grouped[e.To], e)
		}
	}
	perPeer := make(map[byte][]byte, len(grouped))
	for to, entries := range grouped {
		perPeer[to] = gobEncode(entries)
	}
	tp.step = StepComplaintBroadcast
	return nil, perPeer, nil
}

func (tp *TPState) collectComplaints(in map[byte][]byte) ([]byte, map[byte][]byte, error) {
	entries := make([]ComplaintEntry, 0, tp.cfg.N)
	for i := byte(1); i <= byte(tp.cfg.N); i++ {
		raw, ok := in[i]
		if !ok {
			return nil, nil, ErrMissingPeerData
		}
		msg, fe := tp.validatePeerMessage(raw, byte(StepComplaintBroadcast), i, tp.peerIdentities[i].SessionSigningPub)
		if fe != wire.NoFramingError {
			return nil, nil, fe
		}
		var ce ComplaintEntry
		if err := gobDecode(msg.Payload, &ce); err != nil {
			return nil, nil, ErrDecodePayload
		}
		ce.From = i
		tp.complaints[i] = &ce
		entries = append(entries, ce)
	}
	out := tp.broadcast(byte(StepComplaintAggregate), gobEncode(entries))
	tp.step = StepKeyRevealDemand
	return out, nil, nil
}

func (tp *TPState) demandKeyReveals() ([]byte, map[byte][]byte, error) {
	demands := make(map[byte][]byte) // accused -> gob([]byte of accusers)
	for accuser, ce := range tp.complaints {
		for accused := byte(1); accused <= byte(tp.cfg.N); accused++ {
			if int(accused) > len(ce.Against) || !ce.Against[accused-1] {
				continue
			}
			demands[accused] = append(demands[accused], accuser)
		}
	}
	perPeer := make(map[byte][]byte, len(demands))
	for accused, accusers := range demands {
		perPeer[accused] = gobEncode(accusers)
	}
	tp.step = StepKeyRevealSubmit
	return nil, perPeer, nil
}

func (tp *TPState) collectKeyReveals(in map[byte][]byte) ([]byte, map[byte][]byte, error) {
	for from, raw := range in {
		var entries []KeyRevealEntry
		if err := gobDecode(raw, &entries); err != nil {
			return nil, nil, ErrDecodePayload
		}
		for _, e := range entries {
			if e.From != from {
				return nil, nil, wire.FromErr
			}
			entry := e
			tp.keyReveals[pairKey{e.From, e.To}] = &entry
		}
	}
	tp.step = StepAdjudication
	return nil, nil, nil
}

// adjudicate re-verifies every complained-about share using the revealed
// channel key material and records the outcomes in the cheater ledger, per
// spec §4.G step 18.
func (tp *TPState) adjudicate() ([]byte, map[byte][]byte, error) {
	complainedAgainst := make(map[pairKey]bool)
	for accuser, ce := range tp.complaints {
		for accused := byte(1); accused <= byte(tp.cfg.N); accused++ {
			if int(accused) <= len(ce.Against) && ce.Against[accused-1] {
				complainedAgainst[pairKey{accused, accuser}] = true
			}
		}
	}

	for k, reveal := range tp.keyReveals {
		if !complainedAgainst[k] {
			tp.ledger.Record(int(StepAdjudication), wire.CheaterUnexpectedReveal, k.From, wire.NoReporter, k.To)
			continue
		}
		delete(complainedAgainst, k)
		tp.adjudicatePair(k, reveal)
	}

	for k := range complainedAgainst {
		tp.ledger.Record(int(StepAdjudication), wire.CheaterNoReveal, k.From, k.To, k.To)
	}

	out := tp.broadcast(byte(StepAdjudication), gobEncode(tp.ledger.Records()))
	tp.step = StepTranscriptCompare
	return out, nil, nil
}

func (tp *TPState) adjudicatePair(k pairKey, reveal *KeyRevealEntry) {
	if len(reveal.Seed) != 32 {
		tp.ledger.Record(int(StepAdjudication), wire.CheaterMalformedReveal, k.From, k.To, k.To)
		return
	}
	m8, ok := tp.shareDeliveries[k]
	if !ok {
		tp.ledger.Record(int(StepAdjudication), wire.CheaterMalformedReveal, k.From, k.To, k.To)
		return
	}

	sc, err := channel.NewSecureChannel(reveal.Seed)
	if err != nil {
		tp.ledger.Record(int(StepAdjudication), wire.ShareDeliveryCheaterCode(wire.SigErr), k.From, k.To, k.To)
		return
	}
	defer sc.Close()

	blob := make([]byte, 0, 33+16)
	blob = append(blob, m8.ShareCiphertext[:]...)
	blob = append(blob, m8.AEADTag[:]...)
	if !sc.VerifyCommittingMAC(blob, m8.CommittingHMAC[:]) {
		tp.ledger.Record(int(StepAdjudication), wire.ShareDeliveryCheaterCode(wire.SigErr), k.From, k.To, k.To)
		return
	}
	plaintext, err := sc.DecryptOnce(blob)
	if err != nil {
		tp.ledger.Record(int(StepAdjudication), wire.ShareDeliveryCheaterCode(wire.SigErr), k.From, k.To, k.To)
		return
	}

	if tp.verifyRevealedShare(k.From, plaintext) {
		// The complaint was unfounded: cheater is the accuser.
		tp.ledger.Record(int(StepAdjudication), wire.CheaterFalseComplaint, k.To, k.From, k.From)
	} else {
		// The share really was invalid: cheater is the accused.
		tp.ledger.Record(int(StepAdjudication), wire.CheaterProvenCheat, k.From, k.To, k.To)
	}
}

// verifyRevealedShare re-runs the Feldman check a peer should have run on
// receipt, against the sharer's broadcast commitment vector.
func (tp *TPState) verifyRevealedShare(from byte, plaintext []byte) bool {
	commitEntry, ok := tp.commitments[from]
	if !ok || len(plaintext) != 33 {
		return false
	}
	value, err := ristretto.ScalarFromCanonicalBytes(plaintext[1:])
	if err != nil {
		return false
	}
	points, err := decodeCommitmentVector(commitEntry.Commitments)
	if err != nil {
		return false
	}
	return group.VerifyShare(&group.Share{Index: plaintext[0], Value: value}, points)
}

func (tp *TPState) compareTranscripts(in map[byte][]byte) ([]byte, map[byte][]byte, error) {
	want := tp.transcript.Sum(nil)
	for i := byte(1); i <= byte(tp.cfg.N); i++ {
		raw, ok := in[i]
		if !ok {
			return nil, nil, ErrMissingPeerData
		}
		msg, fe := tp.validatePeerMessage(raw, byte(StepTranscriptCompare), i, tp.peerIdentities[i].SessionSigningPub)
		if fe != wire.NoFramingError {
			return nil, nil, fe
		}
		if !bytes.Equal(msg.Payload, want) {
			return nil, nil, ErrTranscriptMismatch
		}
	}
	out := tp.broadcast(byte(StepTranscriptCompare), want)
	tp.step = StepDone
	return out, nil, nil
}

func gobEncode(v interface{}) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func gobDecode(b []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
