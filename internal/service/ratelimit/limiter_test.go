package ratelimit

import "testing"

func TestAllowConsumesAndRefuses(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0) {
			t.Fatalf("token %d refused with capacity 3", i)
		}
	}
	if l.Allow("k", 3, 0) {
		t.Fatalf("empty bucket allowed a request")
	}
	if !l.Allow("other", 3, 0) {
		t.Fatalf("keys must rate-limit independently")
	}
}
