package feedback

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKey(t *testing.T) {
	if got := Key("T-42", "solution2"); got != "T-42_solution2" {
		t.Errorf("Key = %q, want T-42_solution2", got)
	}
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := Key("T-1", "solution1")

	count, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if count != 0 {
		t.Errorf("count before any feedback = %d, want 0", count)
	}

	for i := 0; i < 3; i++ {
		if err := s.Record(ctx, key); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	count, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestSQLiteStore_KeysAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, Key("T-1", "solution1")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	count, err := s.Get(ctx, Key("T-1", "solution2"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if count != 0 {
		t.Errorf("count for a different solution = %d, want 0", count)
	}
}

func TestSQLiteStore_ConcurrentRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := Key("T-1", "solution1")

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Record(ctx, key)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	count, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if count != n {
		t.Errorf("count after %d concurrent records = %d, lost updates", n, count)
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
