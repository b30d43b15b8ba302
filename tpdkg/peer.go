package tpdkg

import (
	"crypto/ed25519"
	"crypto/rand"
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

// PeerConfig configures a PeerState.
type PeerConfig struct {
	Index   byte
	N, T    int
	Epsilon uint64
	DST     []byte
	// LongTermKey is this peer's long-term Ed25519 identity, known to the TP
	// in advance.
	LongTermKey *identity.KeyPair
	// PeerLongTermPubKeys are every peer's long-term public key, indexed by
	// peer index - 1.
	PeerLongTermPubKeys []ed25519.PublicKey
	Rand                io.Reader
	Logger              *logger.Logger
}

func (c *PeerConfig) Validate() error {
	if err := security.ValidateThreshold(c.T, c.N); err != nil {
		return ErrInvalidConfig
	}
	if c.N > 255 {
		return ErrInvalidConfig
	}
	if c.Index < 1 || int(c.Index) > c.N {
		return ErrInvalidConfig
	}
	if c.LongTermKey == nil || len(c.PeerLongTermPubKeys) != c.N {
		return ErrInvalidConfig
	}
	return nil
}

// pairHandshake tracks one other peer's handshake and, once it completes,
// the resulting secure channel and the raw seed it was derived from (the
// seed is retained only so it can be produced verbatim during a forced key
// reveal; see spec §4.G step 18).
type pairHandshake struct {
	hs        *channel.Handshake
	initiator bool
	sc        *channel.SecureChannel
	seed      []byte
}

// PeerState mirrors TPState on one peer: it computes its own polynomial
// share, runs the pairwise Noise handshakes, delivers and verifies Shamir
// shares, raises complaints, and answers key-reveal demands (component H).
type PeerState struct {
	cfg       PeerConfig
	step      Step
	sessionID [32]byte
	tpPub     ed25519.PublicKey
	sessionKP *identity.KeyPair
	static    *channel.StaticKeyPair

	poly        *group.Polynomial
	commitments []*ristretto.Point

	peerIdentities  map[byte]*PeerIdentity
	peerCommitments map[byte]*CommitmentEntry
	handshakes      map[byte]*pairHandshake
	outgoingShares  map[byte]*group.Share
	receivedShares  map[byte]*group.Share
	complaints      []bool

	// transcript hashes every TP broadcast this peer has validated, in
	// order; it must equal the TP's own transcript hash at final compare.
	transcript hash.Hash

	lastTS uint64
	log    *logger.Logger
}

// NewPeerState allocates one peer's side of a fresh TP-DKG session.
func NewPeerState(cfg PeerConfig) (*PeerState, error) {
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
	static, err := channel.GenerateStaticKeyPair(cfg.Rand)
	if err != nil {
		return nil, err
	}
	log.DebugEvent().PeerIndex(cfg.Index).Str("statickey", logger.RedactStaticKey(static.Private)).
		Msg("tpdkg: provisioned handshake static keypair")
	th, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	return &PeerState{
		cfg:             cfg,
		step:            StepStart,
		sessionKP:       sessionKP,
		static:          static,
		peerIdentities:  make(map[byte]*PeerIdentity),
		peerCommitments: make(map[byte]*CommitmentEntry),
		handshakes:      make(map[byte]*pairHandshake),
		outgoingShares:  make(map[byte]*group.Share),
		receivedShares:  make(map[byte]*group.Share),
		transcript:      th,
		log:             log,
	}, nil
}

// Step reports the peer's current step.
func (p *PeerState) Step() Step { return p.step }

// OwnCommitmentVector returns this peer's own Feldman commitment vector,
// valid once HandleIdentities has run.
func (p *PeerState) OwnCommitmentVector() []*ristretto.Point { return p.commitments }

func (p *PeerState) sign(typ byte, payload []byte) []byte {
	msg, err := wire.NewMessage(typ, p.cfg.Index, wire.RecipientTP, p.now(), p.sessionID, payload, p.sessionKP.Private)
	if err != nil {
		panic(err)
	}
	return msg.Serialize()
}

func (p *PeerState) signWith(typ byte, payload []byte, priv ed25519.PrivateKey) []byte {
	msg, err := wire.NewMessage(typ, p.cfg.Index, wire.RecipientTP, p.now(), p.sessionID, payload, priv)
	if err != nil {
		panic(err)
	}
	return msg.Serialize()
}

// Start processes the TP's initial broadcast and returns this peer's
// identity announcement, signed with its long-term key so the TP can
// authenticate it before any session key exists.
func (p *PeerState) Start(tpBroadcast []byte) ([]byte, error) {
	msg, err := wire.DeserializeMessage(tpBroadcast)
	if err != nil {
		return nil, err
	}
	m0, err := wire.UnmarshalMsg0(msg.Payload)
	if err != nil {
		return nil, err
	}
	if int(m0.N) != p.cfg.N || int(m0.T) != p.cfg.T {
		return nil, ErrInvalidConfig
	}
	p.sessionID = msg.Header.SessionID
	p.tpPub = append(ed25519.PublicKey{}, m0.TPSessionPubKey[:]...)
	if !msg.Header.VerifySignature(p.tpPub, msg.Payload) {
		return nil, wire.SigErr
	}
	p.lastTS = msg.Header.Timestamp
	p.transcript.Write(tpBroadcast)
	p.step = StepIdentityBroadcast
	p.log.With().PeerIndex(p.cfg.Index).Logger().Info("tpdkg: peer joined session")

	pi := PeerIdentity{
		Index:              p.cfg.Index,
		SessionSigningPub:  p.sessionKP.Public,
		HandshakeStaticPub: p.static.Public,
	}
	return p.signWith(byte(StepIdentityBroadcast), gobEncode(pi), p.cfg.LongTermKey.Private), nil
}

// HandleIdentities processes the TP's aggregated identity broadcast, draws
// this peer's own polynomial, and returns its Feldman commitment broadcast.
func (p *PeerState) HandleIdentities(raw []byte) ([]byte, error) {
	if err := p.verifyTPBroadcast(raw, byte(StepIdentityBroadcast)); err != nil {
		return nil, err
	}
	msg, _ := wire.DeserializeMessage(raw)
	var identities []PeerIdentity
	if err := gobDecode(msg.Payload, &identities); err != nil {
		return nil, ErrDecodePayload
	}
	for _, id := range identities {
		idCopy := id
		p.peerIdentities[id.Index] = &idCopy
	}
	if _, ok := p.peerIdentities[p.cfg.Index]; !ok {
		return nil, ErrMissingPeerData
	}

	secret, err := ristretto.RandomScalar(p.cfg.Rand)
	if err != nil {
		return nil, err
	}
	poly, err := group.NewRandomPolynomial(p.cfg.T, secret)
	if err != nil {
		return nil, err
	}
	p.poly = poly
	p.commitments = poly.CommitmentVector()
	for j := byte(1); j <= byte(p.cfg.N); j++ {
		p.outgoingShares[j] = &group.Share{Index: j, Value: poly.Evaluate(j)}
	}

	p.step = StepCommitmentBroadcast
	ce := CommitmentEntry{PeerIndex: p.cfg.Index, Commitments: encodeCommitmentVector(p.commitments)}
	return p.sign(byte(StepCommitmentBroadcast), gobEncode(ce)), nil
}

// HandleCommitments processes the TP's aggregated commitment broadcast and
// starts the Noise handshake toward every higher-indexed peer.
func (p *PeerState) HandleCommitments(raw []byte) ([]byte, error) {
	if err := p.verifyTPBroadcast(raw, byte(StepCommitmentBroadcast)); err != nil {
		return nil, err
	}
	msg, _ := wire.DeserializeMessage(raw)
	var entries []CommitmentEntry
	if err := gobDecode(msg.Payload, &entries); err != nil {
		return nil, ErrDecodePayload
	}
	for _, ce := range entries {
		entry := ce
		p.peerCommitments[ce.PeerIndex] = &entry
	}

	p.step = StepHandshakeInit
	var envs []HandshakeEnvelope
	for j := byte(1); j <= byte(p.cfg.N); j++ {
		if j <= p.cfg.Index {
			continue
		}
		peerID, ok := p.peerIdentities[j]
		if !ok {
			return nil, ErrMissingPeerData
		}
		hs, err := channel.NewInitiatorHandshake(p.static, peerID.HandshakeStaticPub)
		if err != nil {
			return nil, err
		}
		msg1, err := hs.Step1()
		if err != nil {
			return nil, err
		}
		p.handshakes[j] = &pairHandshake{hs: hs, initiator: true}
		envs = append(envs, HandshakeEnvelope{From: p.cfg.Index, To: j, Message: msg1})
	}
	return gobEncode(envs), nil
}

// HandleHandshakeRound1 processes message1s addressed to this peer as a
// responder and returns its message2 replies. The responder's secure
// channel is ready as soon as this call returns; raw is nil for a peer that
// is never a responder (the lowest-indexed peer in the session).
func (p *PeerState) HandleHandshakeRound1(raw []byte) ([]byte, error) {
	var envs []HandshakeEnvelope
	if len(raw) > 0 {
		if err := gobDecode(raw, &envs); err != nil {
			return nil, ErrDecodePayload
		}
	}
	p.step = StepHandshakeRespond
	var out []HandshakeEnvelope
	for _, e := range envs {
		if e.To != p.cfg.Index {
			return nil, wire.ToErr
		}
		hs, err := channel.NewResponderHandshake(p.static)
		if err != nil {
			return nil, err
		}
		if err := hs.ReadStep1(e.Message); err != nil {
			return nil, err
		}
		msg2, seed, err := hs.Step2()
		if err != nil {
			return nil, err
		}
		sc, err := channel.NewSecureChannel(seed)
		if err != nil {
			return nil, err
		}
		p.handshakes[e.From] = &pairHandshake{hs: hs, initiator: false, sc: sc, seed: seed}
		out = append(out, HandshakeEnvelope{From: p.cfg.Index, To: e.From, Message: msg2})
	}
	return gobEncode(out), nil
}

// HandleHandshakeRound2 processes message2s addressed to this peer as an
// initiator and derives its secure channel for each such pair. It does not
// hand back message3: that final handshake flight is produced later,
// bundled with the encrypted share, in BuildShareDeliveries. raw is nil for
// a peer that never initiates a handshake (the highest-indexed peer).
func (p *PeerState) HandleHandshakeRound2(raw []byte) error {
	var envs []HandshakeEnvelope
	if len(raw) > 0 {
		if err := gobDecode(raw, &envs); err != nil {
			return ErrDecodePayload
		}
	}
	p.step = StepShareDelivery
	for _, e := range envs {
		if e.To != p.cfg.Index {
			return wire.ToErr
		}
		ph, ok := p.handshakes[e.From]
		if !ok || !ph.initiator {
			return ErrMissingPeerData
		}
		seed, err := ph.hs.ReadStep2(e.Message)
		if err != nil {
			return err
		}
		sc, err := channel.NewSecureChannel(seed)
		if err != nil {
			return err
		}
		ph.sc, ph.seed = sc, seed
	}
	return nil
}

// BuildShareDeliveries encrypts this peer's polynomial evaluation for every
// other peer under its established secure channel, ready for relay. For
// pairs where this peer is the handshake initiator, it also produces that
// pair's message3 and bundles it into the same Msg8 as the encrypted share;
// responder-side deliveries carry an all-zero handshake field.
func (p *PeerState) BuildShareDeliveries() ([]byte, error) {
	var entries []ShareDeliveryEntry
	for j := byte(1); j <= byte(p.cfg.N); j++ {
		if j == p.cfg.Index {
			continue
		}
		ph, ok := p.handshakes[j]
		if !ok || ph.sc == nil {
			return nil, channel.ErrHandshakeIncomplete
		}
		share := p.outgoingShares[j]
		plaintext := append([]byte{share.Index}, share.Value.Bytes()...)
		blob := ph.sc.EncryptOnce(plaintext)
		mac := ph.sc.CommittingMAC(blob)

		var m8 wire.Msg8
		if ph.initiator {
			msg3, err := ph.hs.Step3()
			if err != nil {
				return nil, err
			}
			copy(m8.HandshakeMessage[:], msg3)
		}
		copy(m8.ShareCiphertext[:], blob[:33])
		copy(m8.AEADTag[:], blob[33:49])
		copy(m8.CommittingHMAC[:], mac)

		entries = append(entries, ShareDeliveryEntry{From: p.cfg.Index, To: j, Payload: m8.MarshalBinary()})
	}
	return gobEncode(entries), nil
}

// HandleShareDeliveries decrypts and Feldman-verifies every share addressed
// to this peer, accumulates the complaint bitset for any that fail, and
// returns the signed complaint broadcast.
func (p *PeerState) HandleShareDeliveries(raw []byte) ([]byte, error) {
	var entries []ShareDeliveryEntry
	if err := gobDecode(raw, &entries); err != nil {
		return nil, ErrDecodePayload
	}
	p.complaints = make([]bool, p.cfg.N)
	p.step = StepComplaintBroadcast

	for _, e := range entries {
		if e.To != p.cfg.Index {
			return nil, wire.ToErr
		}
		if !p.verifyInboundShare(e) {
			p.complaints[e.From-1] = true
			p.log.InfoEvent().PeerIndex(e.From).Msg("tpdkg: share verification failed, raising complaint")
		}
	}
	ce := ComplaintEntry{From: p.cfg.Index, Against: p.complaints}
	return p.sign(byte(StepComplaintBroadcast), gobEncode(ce)), nil
}

func (p *PeerState) verifyInboundShare(e ShareDeliveryEntry) bool {
	ph, ok := p.handshakes[e.From]
	if !ok || ph.sc == nil {
		return false
	}
	m8, err := wire.UnmarshalMsg8(e.Payload)
	if err != nil {
		return false
	}
	if !ph.initiator {
		// e.From was the initiator for this pair, so its share delivery
		// carries that pair's final handshake message.
		if err := ph.hs.ReadStep3(m8.HandshakeMessage[:]); err != nil {
			return false
		}
	}
	blob := make([]byte, 0, 33+16)
	blob = append(blob, m8.ShareCiphertext[:]...)
	blob = append(blob, m8.AEADTag[:]...)
	if !ph.sc.VerifyCommittingMAC(blob, m8.CommittingHMAC[:]) {
		return false
	}
	plaintext, err := ph.sc.DecryptOnce(blob)
	if err != nil || len(plaintext) != 33 {
		return false
	}
	value, err := ristretto.ScalarFromCanonicalBytes(plaintext[1:])
	if err != nil {
		return false
	}
	commitEntry, ok := p.peerCommitments[e.From]
	if !ok {
		return false
	}
	points, err := decodeCommitmentVector(commitEntry.Commitments)
	if err != nil {
		return false
	}
	share := &group.Share{Index: plaintext[0], Value: value}
	if !group.VerifyShare(share, points) {
		return false
	}
	p.log.DebugEvent().PeerIndex(e.From).Str("share", logger.RedactShare(value.Bytes())).
		Msg("tpdkg: inbound share verified")
	p.receivedShares[e.From] = share
	return true
}

// HandleKeyRevealDemand answers a TP demand to reveal channel key material
// for every pair this peer was complained about.
func (p *PeerState) HandleKeyRevealDemand(raw []byte) ([]byte, error) {
	var accusers []byte
	if err := gobDecode(raw, &accusers); err != nil {
		return nil, ErrDecodePayload
	}
	p.step = StepKeyRevealSubmit
	var entries []KeyRevealEntry
	for _, accuser := range accusers {
		ph, ok := p.handshakes[accuser]
		if !ok || ph.sc == nil {
			continue
		}
		macKey := ph.sc.MACKey()
		seed := append([]byte{}, ph.seed...)
		p.log.DebugEvent().PeerIndex(accuser).
			Str("mackey", logger.RedactMACKey(macKey)).
			Str("seed", logger.RedactSeed(seed)).
			Msg("tpdkg: revealing channel key material for adjudication")
		entries = append(entries, KeyRevealEntry{
			From:   p.cfg.Index,
			To:     accuser,
			MACKey: macKey,
			Seed:   seed,
		})
	}
	return gobEncode(entries), nil
}

// FinalShare returns this peer's final TOPRF key share: the sum of its own
// polynomial's evaluation at its own index plus every verified share
// received from the other peers.
func (p *PeerState) FinalShare() (*group.Share, error) {
	own, ok := p.outgoingShares[p.cfg.Index]
	if !ok {
		return nil, ErrMissingPeerData
	}
	sum := own.Value.Clone()
	for j := byte(1); j <= byte(p.cfg.N); j++ {
		if j == p.cfg.Index {
			continue
		}
		s, ok := p.receivedShares[j]
		if !ok {
			return nil, ErrMissingPeerData
		}
		sum = ristretto.Add(sum, s.Value)
	}
	return &group.Share{Index: p.cfg.Index, Value: sum}, nil
}

// JointCommitmentVector sums every peer's Feldman commitment vector,
// yielding the public commitment to the joint TOPRF key: the key itself is
// never assembled, but JointCommitmentVector()[0] is g^k.
func (p *PeerState) JointCommitmentVector() ([]*ristretto.Point, error) {
	if len(p.peerCommitments) != p.cfg.N {
		return nil, ErrMissingPeerData
	}
	agg := make([]*ristretto.Point, p.cfg.T)
	for k := range agg {
		agg[k] = ristretto.NewPoint()
	}
	for _, ce := range p.peerCommitments {
		pts, err := decodeCommitmentVector(ce.Commitments)
		if err != nil {
			return nil, err
		}
		if len(pts) != p.cfg.T {
			return nil, wire.LenErr
		}
		for k, pt := range pts {
			agg[k] = ristretto.AddPoints(agg[k], pt)
		}
	}
	return agg, nil
}

// FinalizeTranscript signs this peer's accumulated transcript hash for the
// final compare step.
func (p *PeerState) FinalizeTranscript() []byte {
	p.step = StepDone
	return p.sign(byte(StepTranscriptCompare), p.TranscriptHash())
}

// Close zeroizes this peer's retained secret material. Safe to call more
// than once.
func (p *PeerState) Close() {
	if p.poly != nil {
		for _, c := range p.poly.Coefficients {
			c.Zeroize()
		}
	}
	for _, ph := range p.handshakes {
		if ph.sc != nil {
			ph.sc.Close()
		}
		security.SecureZero(ph.seed)
	}
	for _, s := range p.outgoingShares {
		s.Value.Zeroize()
	}
	for _, s := range p.receivedShares {
		s.Value.Zeroize()
	}
	security.SecureZero(p.static.Private)
	p.sessionKP.Zeroize()
}

func (p *PeerState) now() uint64 {
	return uint64(time.Now().Unix())
}

func (p *PeerState) verifyTPBroadcast(raw []byte, expectedType byte) error {
	msg, err := wire.DeserializeMessage(raw)
	if err != nil {
		return err
	}
	ctx := wire.ValidationContext{
		ExpectedType:     expectedType,
		ExpectedFrom:     wire.RecipientTP,
		Self:             p.cfg.Index,
		Now:              p.now(),
		Epsilon:          p.cfg.Epsilon,
		LastAcceptedTS:   p.lastTS,
		SenderSessionKey: p.tpPub,
	}
	if fe := msg.Validate(ctx); fe != wire.NoFramingError {
		return fe
	}
	p.lastTS = msg.Header.Timestamp
	p.transcript.Write(raw)
	return nil
}

// HandleComplaintAggregate validates the TP's aggregated complaint
// broadcast and folds it into this peer's transcript.
func (p *PeerState) HandleComplaintAggregate(raw []byte) error {
	return p.verifyTPBroadcast(raw, byte(StepComplaintAggregate))
}

// HandleAdjudicationResult validates the TP's cheater-ledger broadcast,
// folds it into this peer's transcript, and returns the decoded records
// for local inspection.
func (p *PeerState) HandleAdjudicationResult(raw []byte) ([]wire.CheaterRecord, error) {
	if err := p.verifyTPBroadcast(raw, byte(StepAdjudication)); err != nil {
		return nil, err
	}
	msg, _ := wire.DeserializeMessage(raw)
	var records []wire.CheaterRecord
	if err := gobDecode(msg.Payload, &records); err != nil {
		return nil, ErrDecodePayload
	}
	return records, nil
}

// TranscriptHash returns this peer's accumulated transcript hash.
func (p *PeerState) TranscriptHash() []byte {
	return append([]byte{}, p.transcript.Sum(nil)...)
}
