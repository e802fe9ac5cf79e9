package configtest

import (
	"testing"
	"time"
)

// Tick is how often Eventually and Never re-evaluate their condition.
const Tick = 5 * time.Millisecond

// Eventually fails the test unless cond returns true within timeout.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, msg)
		}
		time.Sleep(Tick)
	}
}

// Never fails the test if cond returns true at any point during d.
func Never(t testing.TB, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			t.Fatalf("condition unexpectedly met: %s", msg)
		}
		time.Sleep(Tick)
	}
}

// AssertDone asserts that done is closed within timeout.
func AssertDone(t testing.TB, done <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("not done within %s", timeout)
	}
}

// AssertRunning asserts that done is still open.
func AssertRunning(t testing.TB, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
		t.Fatal("expected to still be running")
	default:
	}
}
