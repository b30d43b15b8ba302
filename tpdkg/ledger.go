package tpdkg

import "github.com/vaultkit/toprf-dkg/wire"

// CheaterLedger is a bounded, append-only log of typed protocol violations
// (component I). Capacity defaults to t*t-1, matching the reference
// implementation's sizing convention.
type CheaterLedger struct {
	records  []wire.CheaterRecord
	capacity int
	full     bool
}

// NewCheaterLedger returns an empty ledger sized for threshold t.
func NewCheaterLedger(t int) *CheaterLedger {
	cap := t*t - 1
	if cap < 1 {
		cap = 1
	}
	return &CheaterLedger{records: make([]wire.CheaterRecord, 0, cap), capacity: cap}
}

// Record appends a cheater record. Once the ledger reaches capacity,
// further records are dropped silently and Full reports true, which makes
// the overall protocol outcome "failed" regardless of the records kept.
func (l *CheaterLedger) Record(step int, code wire.CheaterCode, peer, reporter, invalidIndex byte) {
	if len(l.records) >= l.capacity {
		l.full = true
		return
	}
	l.records = append(l.records, wire.CheaterRecord{
		Step:         step,
		Code:         code,
		Peer:         peer,
		Reporter:     reporter,
		InvalidIndex: invalidIndex,
	})
}

// Records returns the recorded cheater entries, in insertion order.
func (l *CheaterLedger) Records() []wire.CheaterRecord {
	out := make([]wire.CheaterRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Empty reports whether no cheater has been recorded.
func (l *CheaterLedger) Empty() bool { return len(l.records) == 0 }

// Full reports whether the ledger overflowed its capacity.
func (l *CheaterLedger) Full() bool { return l.full }

// CheatedPeers returns the distinct peer indices implicated as the cheating
// party (not merely as a reporter) across all recorded entries.
func (l *CheaterLedger) CheatedPeers() []byte {
	seen := make(map[byte]bool)
	var out []byte
	for _, r := range l.records {
		if !seen[r.Peer] {
			seen[r.Peer] = true
			out = append(out, r.Peer)
		}
	}
	return out
}
