package rate

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewMemory()
	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("vote", 3, time.Minute)
		if !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow("vote", 3, time.Minute)
	if ok {
		t.Fatalf("fourth call should be refused")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after: %v", retryAfter)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewMemory()
	if ok, _ := l.Allow("vote", 1, time.Minute); !ok {
		t.Fatalf("first vote should pass")
	}
	if ok, _ := l.Allow("vote", 1, time.Minute); ok {
		t.Fatalf("second vote should be refused")
	}
	if ok, _ := l.Allow("comment", 1, time.Minute); !ok {
		t.Fatalf("comment window is separate from vote window")
	}
}

func TestWindowResets(t *testing.T) {
	l := NewMemory()
	if ok, _ := l.Allow("post", 1, 10*time.Millisecond); !ok {
		t.Fatalf("first call should pass")
	}
	if ok, _ := l.Allow("post", 1, 10*time.Millisecond); ok {
		t.Fatalf("second call should be refused")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := l.Allow("post", 1, 10*time.Millisecond); !ok {
		t.Fatalf("call after the window should pass")
	}
}
