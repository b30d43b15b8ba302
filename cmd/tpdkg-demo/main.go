// Package main demonstrates a trusted-party-mediated DKG session for a
// threshold OPRF, run entirely in-process with n simulated peers.
package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/gob"
	"flag"
	"fmt"
	"log"

	"github.com/vaultkit/toprf-dkg/group"
	"github.com/vaultkit/toprf-dkg/group/ristretto"
	"github.com/vaultkit/toprf-dkg/identity"
	"github.com/vaultkit/toprf-dkg/tpdkg"
	"github.com/vaultkit/toprf-dkg/toprf"
)

func main() {
	n := flag.Int("n", 5, "number of peers")
	t := flag.Int("t", 3, "reconstruction threshold")
	flag.Parse()

	if *t < 1 || *t > *n {
		log.Fatalf("threshold must satisfy 1 <= t <= n")
	}

	fmt.Printf("=== Trusted-Party DKG: %d-of-%d ===\n", *t, *n)

	fmt.Println("\nPhase 1: Provisioning long-term identities...")
	longTerm := make([]*identity.KeyPair, *n)
	pubKeys := make([]ed25519.PublicKey, *n)
	for i := 0; i < *n; i++ {
		kp, err := identity.Generate(nil)
		if err != nil {
			log.Fatalf("peer %d: identity.Generate: %v", i+1, err)
		}
		longTerm[i] = kp
		pubKeys[i] = kp.Public
		fmt.Printf("  peer %d: long-term key provisioned\n", i+1)
	}

	tp, err := tpdkg.NewTPState(tpdkg.TPConfig{
		N:                   *n,
		T:                   *t,
		Epsilon:             300,
		DST:                 []byte("tpdkg-demo v1"),
		PeerLongTermPubKeys: pubKeys,
	})
	if err != nil {
		log.Fatalf("NewTPState: %v", err)
	}

	peers := make([]*tpdkg.PeerState, *n)
	for i := 0; i < *n; i++ {
		p, err := tpdkg.NewPeerState(tpdkg.PeerConfig{
			Index:               byte(i + 1),
			N:                   *n,
			T:                   *t,
			Epsilon:             300,
			DST:                 []byte("tpdkg-demo v1"),
			LongTermKey:         longTerm[i],
			PeerLongTermPubKeys: pubKeys,
		})
		if err != nil {
			log.Fatalf("NewPeerState(%d): %v", i+1, err)
		}
		peers[i] = p
	}

	fmt.Println("\nPhase 2: Running the session to completion...")
	if err := runSession(tp, peers); err != nil {
		log.Fatalf("session failed: %v", err)
	}
	if err := tp.Outcome(); err != nil {
		fmt.Println("  cheater ledger:")
		for _, r := range tp.Ledger().Records() {
			fmt.Println("   ", r.String())
		}
		log.Fatalf("protocol outcome: %v", err)
	}
	fmt.Println("  session complete, no cheaters detected")

	fmt.Println("\nPhase 3: Collecting final shares...")
	shares := make([]*group.Share, *n)
	for i, p := range peers {
		sh, err := p.FinalShare()
		if err != nil {
			log.Fatalf("peer %d FinalShare: %v", i+1, err)
		}
		shares[i] = sh
	}
	joint, err := peers[0].JointCommitmentVector()
	if err != nil {
		log.Fatalf("JointCommitmentVector: %v", err)
	}
	fmt.Printf("  joint public key: %x\n", joint[0].Bytes())

	fmt.Println("\nPhase 4: Evaluating a threshold OPRF query with a quorum of peers...")
	quorum := shares[:*t]
	indices := make([]byte, len(quorum))
	for i, sh := range quorum {
		indices[i] = sh.Index
	}

	input := []byte("tpdkg-demo oprf input")
	blinded := ristretto.HashToPoint(input)

	partials := make([]*toprf.Partial, len(quorum))
	for i, sh := range quorum {
		partial, err := toprf.Evaluate(sh.Value, blinded, sh.Index, indices)
		if err != nil {
			log.Fatalf("toprf.Evaluate(peer %d): %v", sh.Index, err)
		}
		partials[i] = partial
		fmt.Printf("  peer %d contributed a partial evaluation\n", sh.Index)
	}

	result, err := toprf.ThresholdCombine(partials)
	if err != nil {
		log.Fatalf("toprf.ThresholdCombine: %v", err)
	}
	fmt.Printf("  combined OPRF output: %x\n", result.Bytes())

	fmt.Println("\nPhase 5: Verifying against an independent quorum...")
	altQuorum := shares[*n-*t:]
	altIndices := make([]byte, len(altQuorum))
	for i, sh := range altQuorum {
		altIndices[i] = sh.Index
	}
	altPartials := make([]*toprf.Partial, len(altQuorum))
	for i, sh := range altQuorum {
		partial, err := toprf.Evaluate(sh.Value, blinded, sh.Index, altIndices)
		if err != nil {
			log.Fatalf("toprf.Evaluate(peer %d): %v", sh.Index, err)
		}
		altPartials[i] = partial
	}
	altResult, err := toprf.ThresholdCombine(altPartials)
	if err != nil {
		log.Fatalf("toprf.ThresholdCombine: %v", err)
	}
	if !altResult.Equal(result) {
		log.Fatalf("quorums disagree on OPRF output")
	}
	fmt.Println("  both quorums agree on the OPRF output")

	for _, p := range peers {
		p.Close()
	}
	fmt.Println("\n=== Done ===")
}

// runSession drives tp and every peer through the full handshake mesh,
// share delivery, complaint, and adjudication sequence.
func runSession(tp *tpdkg.TPState, peers []*tpdkg.PeerState) error {
	msg0, _, err := tp.Next(nil)
	if err != nil {
		return err
	}

	identityMsgs := map[byte][]byte{}
	for i, p := range peers {
		out, err := p.Start(msg0)
		if err != nil {
			return err
		}
		identityMsgs[byte(i+1)] = out
	}

	identitiesBroadcast, _, err := tp.Next(identityMsgs)
	if err != nil {
		return err
	}
	commitMsgs := map[byte][]byte{}
	for i, p := range peers {
		out, err := p.HandleIdentities(identitiesBroadcast)
		if err != nil {
			return err
		}
		commitMsgs[byte(i+1)] = out
	}

	commitsBroadcast, _, err := tp.Next(commitMsgs)
	if err != nil {
		return err
	}
	roundA := map[byte][]byte{}
	for i, p := range peers {
		out, err := p.HandleCommitments(commitsBroadcast)
		if err != nil {
			return err
		}
		roundA[byte(i+1)] = out
	}

	_, perPeerA, err := tp.Next(roundA)
	if err != nil {
		return err
	}
	roundB := map[byte][]byte{}
	for i, p := range peers {
		out, err := p.HandleHandshakeRound1(perPeerA[byte(i+1)])
		if err != nil {
			return err
		}
		roundB[byte(i+1)] = out
	}

	_, perPeerB, err := tp.Next(roundB)
	if err != nil {
		return err
	}
	for i, p := range peers {
		if err := p.HandleHandshakeRound2(perPeerB[byte(i+1)]); err != nil {
			return err
		}
	}

	shareMsgs := map[byte][]byte{}
	for i, p := range peers {
		out, err := p.BuildShareDeliveries()
		if err != nil {
			return err
		}
		shareMsgs[byte(i+1)] = out
	}

	_, perPeerShares, err := tp.Next(shareMsgs)
	if err != nil {
		return err
	}
	complaintMsgs := map[byte][]byte{}
	for i, p := range peers {
		out, err := p.HandleShareDeliveries(perPeerShares[byte(i+1)])
		if err != nil {
			return err
		}
		complaintMsgs[byte(i+1)] = out
	}

	complaintsBroadcast, _, err := tp.Next(complaintMsgs)
	if err != nil {
		return err
	}
	for _, p := range peers {
		if err := p.HandleComplaintAggregate(complaintsBroadcast); err != nil {
			return err
		}
	}

	_, perPeerDemand, err := tp.Next(nil)
	if err != nil {
		return err
	}
	revealMsgs := map[byte][]byte{}
	for i, p := range peers {
		in := perPeerDemand[byte(i+1)]
		if in == nil {
			in = encodeEmptyAccuserList()
		}
		out, err := p.HandleKeyRevealDemand(in)
		if err != nil {
			return err
		}
		revealMsgs[byte(i+1)] = out
	}

	if _, _, err := tp.Next(revealMsgs); err != nil {
		return err
	}

	ledgerBroadcast, _, err := tp.Next(nil)
	if err != nil {
		return err
	}
	for _, p := range peers {
		if _, err := p.HandleAdjudicationResult(ledgerBroadcast); err != nil {
			return err
		}
	}

	transcriptMsgs := map[byte][]byte{}
	for i, p := range peers {
		transcriptMsgs[byte(i+1)] = p.FinalizeTranscript()
	}
	if _, _, err := tp.Next(transcriptMsgs); err != nil {
		return err
	}
	return nil
}

func encodeEmptyAccuserList() []byte {
	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode([]byte{}); err != nil {
		panic(err)
	}
	return out.Bytes()
}
