package dedup

import (
	"sync"
	"testing"
)

func TestLedgerAccept(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	if !l.Accept("u1", "c1") {
		t.Fatalf("first accept should succeed")
	}
	if l.Accept("u1", "c2") {
		t.Fatalf("url collision should be rejected")
	}
	if l.Accept("u2", "c1") {
		t.Fatalf("content collision should be rejected")
	}
	if l.Contains("u2") || l.Contains("c2") {
		t.Fatalf("rejected candidates must not be inserted")
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 fingerprints, got %d", l.Len())
	}
}

func TestLedgerAcceptURL(t *testing.T) {
	t.Parallel()

	var l Ledger
	if !l.AcceptURL("u1") {
		t.Fatalf("first accept should succeed")
	}
	if l.AcceptURL("u1") {
		t.Fatalf("second accept should fail")
	}
	l.Add("u2")
	if !l.Contains("u2") {
		t.Fatalf("added fingerprint missing")
	}
}

func TestLedgerAcceptIsAtomic(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Accept("same-url", "same-content") {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one acceptance, got %d", accepted)
	}
}
