package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/trapline/trapline/internal/intel"
)

func TestSessionStoreGetOrCreate(t *testing.T) {
	store := NewSessionStore()

	sess, created := store.GetOrCreate("s1")
	if !created {
		t.Error("first contact must create the session")
	}
	if sess.State != StateActive {
		t.Errorf("new session state = %q, want %q", sess.State, StateActive)
	}

	again, created := store.GetOrCreate("s1")
	if created {
		t.Error("second contact must not create")
	}
	if again != sess {
		t.Error("expected the same session pointer")
	}
}

func TestSessionStoreRemove(t *testing.T) {
	store := NewSessionStore()
	store.GetOrCreate("s1")
	store.GetOrCreate("s2")

	store.Remove("s1")
	if _, ok := store.Get("s1"); ok {
		t.Error("removed session still present")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}

	// Removing twice is a no-op.
	store.Remove("s1")
	if store.Len() != 1 {
		t.Errorf("Len() = %d after double remove, want 1", store.Len())
	}
}

func TestSessionStoreConcurrentCreate(t *testing.T) {
	store := NewSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.GetOrCreate(fmt.Sprintf("s%d", n%4))
		}(i)
	}
	wg.Wait()

	if store.Len() != 4 {
		t.Errorf("Len() = %d, want 4", store.Len())
	}
}

func TestTotalsByCategory(t *testing.T) {
	store := NewSessionStore()

	a, _ := store.GetOrCreate("a")
	a.Intelligence = intel.Record{UPIIDs: []string{"x@upi"}, PhoneNumbers: []string{"+919876543210"}}
	b, _ := store.GetOrCreate("b")
	b.Intelligence = intel.Record{UPIIDs: []string{"y@upi", "z@upi"}}

	totals := store.TotalsByCategory()
	if totals["upiIds"] != 3 {
		t.Errorf("upiIds = %d, want 3", totals["upiIds"])
	}
	if totals["phoneNumbers"] != 1 {
		t.Errorf("phoneNumbers = %d, want 1", totals["phoneNumbers"])
	}
}
