package store

import (
	"sync"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func mustKey(t *testing.T, origin, dest, routeID string) string {
	t.Helper()
	k, err := Key(origin, dest, routeID)
	if err != nil {
		t.Fatalf("Key(%q, %q, %q): %v", origin, dest, routeID, err)
	}
	return k
}

func TestGet_Unseen(t *testing.T) {
	st := New(Bounds{})
	if v := st.Get(mustKey(t, "Mumbai", "Andheri", "r_green")); v != 0 {
		t.Errorf("Get on empty store: got %d, want 0", v)
	}
	if st.Count() != 0 {
		t.Errorf("Count after Get: got %d, want 0 (Get must not insert)", st.Count())
	}
}

func TestApply_Accumulates(t *testing.T) {
	st := New(Bounds{})
	key := mustKey(t, "Mumbai", "Andheri", "r_red")

	st.Apply(key, -10)
	if got := st.Apply(key, -10); got != -20 {
		t.Errorf("Apply return: got %d, want -20", got)
	}
	if got := st.Get(key); got != -20 {
		t.Errorf("Get: got %d, want -20", got)
	}
}

func TestApply_OrderIndependent(t *testing.T) {
	deltas := []int{-10, 5, 3, -8, 0, 5}
	forward := New(Bounds{})
	backward := New(Bounds{})

	for i := range deltas {
		forward.Apply("k", deltas[i])
		backward.Apply("k", deltas[len(deltas)-1-i])
	}
	if forward.Get("k") != backward.Get("k") {
		t.Errorf("order dependence: forward %d, backward %d", forward.Get("k"), backward.Get("k"))
	}
	if forward.Get("k") != -5 {
		t.Errorf("sum: got %d, want -5", forward.Get("k"))
	}
}

func TestApply_KeysIsolated(t *testing.T) {
	st := New(Bounds{})
	a := mustKey(t, "Mumbai", "Andheri", "r_red")
	b := mustKey(t, "Mumbai", "Andheri", "r_green")
	c := mustKey(t, "Mumbai", "Bandra", "r_red")

	st.Apply(a, -10)
	st.Apply(a, -8)

	if st.Get(b) != 0 {
		t.Errorf("Get(b): got %d, want 0", st.Get(b))
	}
	if st.Get(c) != 0 {
		t.Errorf("Get(c): got %d, want 0", st.Get(c))
	}
}

func TestApply_Clamped(t *testing.T) {
	st := New(Bounds{Enabled: true, Min: -15, Max: 8})
	for i := 0; i < 3; i++ {
		st.Apply("low", -10)
		st.Apply("high", 5)
	}
	if got := st.Get("low"); got != -15 {
		t.Errorf("low: got %d, want -15", got)
	}
	if got := st.Get("high"); got != 8 {
		t.Errorf("high: got %d, want 8", got)
	}

	// Recovers from the floor immediately once positive deltas arrive.
	if got := st.Apply("low", 5); got != -10 {
		t.Errorf("low after +5: got %d, want -10", got)
	}
}

func TestSetBounds_AppliesOnNextWrite(t *testing.T) {
	st := New(Bounds{})
	st.Apply("k", -50)

	st.SetBounds(Bounds{Enabled: true, Min: -20, Max: 20})
	if got := st.Get("k"); got != -50 {
		t.Errorf("Get after SetBounds: got %d, want -50 (untouched until next Apply)", got)
	}
	if got := st.Apply("k", 0); got != -20 {
		t.Errorf("Apply after SetBounds: got %d, want -20", got)
	}
}

func TestList_SortedWithTimestamps(t *testing.T) {
	base := time.Now()
	st := New(Bounds{})
	st.now = fixedClock(base)

	st.Apply("b", 3)
	st.Apply("a", -8)

	entries := st.List()
	if len(entries) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(entries))
	}
	if entries[0].Key != "a" || entries[1].Key != "b" {
		t.Errorf("List order: got %q, %q; want a, b", entries[0].Key, entries[1].Key)
	}
	if !entries[0].UpdatedAt.Equal(base) {
		t.Errorf("UpdatedAt: got %v, want %v", entries[0].UpdatedAt, base)
	}
}

func TestConcurrentApply(t *testing.T) {
	st := New(Bounds{})
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Apply("concurrent", 5)
		}()
		go func() {
			defer wg.Done()
			st.Apply("concurrent", -8)
		}()
	}
	wg.Wait()

	if got := st.Get("concurrent"); got != 100*(5-8) {
		t.Errorf("Get after concurrent applies: got %d, want %d", got, 100*(5-8))
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(Bounds{})
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			st.Apply("src-a", 3)
		}()
		go func() {
			defer wg.Done()
			st.Get("src-a")
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()

	if got := st.Get("src-a"); got != 150 {
		t.Errorf("Get: got %d, want 150", got)
	}
}
