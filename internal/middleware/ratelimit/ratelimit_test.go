package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowPerKey(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("request %d for alice should be allowed", i+1)
		}
	}
	if rl.Allow("alice") {
		t.Fatal("fourth request for alice should be rejected")
	}
	// Other keys have their own budget.
	if !rl.Allow("bob") {
		t.Fatal("first request for bob should be allowed")
	}
}

func TestMiddlewareKeysOnActorHeader(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(actor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/families", nil)
		if actor != "" {
			req.Header.Set("X-User-ID", actor)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("alice"); code != http.StatusNoContent {
		t.Fatalf("first request = %d", code)
	}
	if code := do("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", code)
	}
	if code := do("bob"); code != http.StatusNoContent {
		t.Fatalf("other actor = %d, want 204", code)
	}
}

func TestCleanupRemovesStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.Allow("alice")
	rl.Allow("bob")
	if got := rl.ActiveClients(); got != 2 {
		t.Fatalf("ActiveClients = %d, want 2", got)
	}

	rl.mu.Lock()
	rl.clients["alice"].lastRequest = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients after cleanup = %d, want 1", got)
	}
}
