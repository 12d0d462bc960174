package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id1.Compare(id2) >= 0 {
		t.Error("IDs generated in sequence should sort in order")
	}
}

func TestTypedIDPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		prefix string
	}{
		{"request", NewRequestID().String(), "req_"},
		{"window", NewWindowID().String(), "win_"},
		{"session", NewSessionID().String(), "sess_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.value, tt.prefix) {
				t.Errorf("expected prefix %s, got %s", tt.prefix, tt.value)
			}
			if !IsValid(tt.value) {
				t.Errorf("expected valid ULID, got %s", tt.value)
			}
		})
	}
}

func TestDraftID(t *testing.T) {
	d := NewDraftID()
	if !IsValidDraftID(d.String()) {
		t.Errorf("draft ID should be a UUID, got %s", d)
	}
	if IsValidDraftID("not-a-uuid") {
		t.Error("invalid draft ID accepted")
	}
}

func TestIsValid(t *testing.T) {
	if IsValid("") {
		t.Error("empty string should be invalid")
	}
	if IsValid("req_nope") {
		t.Error("garbage suffix should be invalid")
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	rid := NewRequestID()

	ts, err := Timestamp(rid.String())
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v is before %v", ts, before)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s := NewWindowID().String()
				mu.Lock()
				if seen[s] {
					t.Errorf("duplicate ID %s", s)
				}
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d IDs, got %d", workers*perWorker, len(seen))
	}
}
