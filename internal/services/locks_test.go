package services

import (
	"sync"
	"testing"
)

func TestSyncLockRegistry_ExclusivePerAccount(t *testing.T) {
	r := NewSyncLockRegistry()

	if !r.TryAcquire(1) {
		t.Fatalf("first acquire must succeed")
	}
	if r.TryAcquire(1) {
		t.Fatalf("second acquire for the same account must fail")
	}
	if !r.TryAcquire(2) {
		t.Fatalf("other accounts are independent")
	}

	r.Release(1)
	if !r.TryAcquire(1) {
		t.Fatalf("acquire after release must succeed")
	}
}

func TestSyncLockRegistry_ReleaseUnheldIsNoop(t *testing.T) {
	r := NewSyncLockRegistry()
	r.Release(9)
	if r.Held(9) {
		t.Fatalf("lock must stay free")
	}
}

func TestSyncLockRegistry_SingleWinnerUnderContention(t *testing.T) {
	r := NewSyncLockRegistry()

	const goroutines = 32
	wins := make(chan struct{}, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if r.TryAcquire(1) {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for range wins {
		n++
	}
	if n != 1 {
		t.Fatalf("winners = %d, want exactly 1", n)
	}
}
