package dedup

import "sync"

// Ledger is the set of fingerprints accepted during one collection run.
// A single instance is shared by every collector of the run.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: map[string]struct{}{}}
}

// Contains reports whether fingerprint was already accepted.
func (l *Ledger) Contains(fingerprint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[fingerprint]
	return ok
}

// Add records fingerprint.
func (l *Ledger) Add(fingerprint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(fingerprint)
}

// Accept inserts both fingerprints only when neither is present yet.
func (l *Ledger) Accept(urlHash, contentHash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[urlHash]; ok {
		return false
	}
	if _, ok := l.seen[contentHash]; ok {
		return false
	}
	l.add(urlHash)
	l.add(contentHash)
	return true
}

// AcceptURL is Accept for sources deduplicated by URL alone.
func (l *Ledger) AcceptURL(urlHash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[urlHash]; ok {
		return false
	}
	l.add(urlHash)
	return true
}

// Len returns the number of stored fingerprints.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func (l *Ledger) add(fingerprint string) {
	if l.seen == nil {
		l.seen = map[string]struct{}{}
	}
	l.seen[fingerprint] = struct{}{}
}
