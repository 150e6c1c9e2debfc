package audit

import (
	"context"
	"testing"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	log := NewLog(store)
	t.Cleanup(log.Close)
	return log
}

func TestAppend_FirstEntryChainsToGenesis(t *testing.T) {
	log := newTestLog(t)
	id, err := log.Append(Entry{TenantID: "tenant-a", Event: "auth.login", Resource: "auth"})
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if id == "" {
		t.Fatal("Append() returned empty id")
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].PrevHash != genesisHash {
		t.Errorf("PrevHash = %q, want genesis", entries[0].PrevHash)
	}
	if entries[0].EntryHash == "" {
		t.Error("EntryHash was not populated")
	}
}

func TestAppend_SubsequentEntryChainsToPrevious(t *testing.T) {
	log := newTestLog(t)
	if _, err := log.Append(Entry{TenantID: "t", Event: "e1", Resource: "r"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if _, err := log.Append(Entry{TenantID: "t", Event: "e2", Resource: "r"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[1].PrevHash != entries[0].EntryHash {
		t.Error("second entry's PrevHash does not match first entry's EntryHash")
	}
}

func TestVerify_CleanChainIsOK(t *testing.T) {
	log := newTestLog(t)
	for i := 0; i < 5; i++ {
		if _, err := log.Append(Entry{TenantID: "t", Event: "e", Resource: "r"}); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	ok, bad := Verify(entries)
	if !ok || bad != -1 {
		t.Errorf("Verify() = (%v, %d), want (true, -1)", ok, bad)
	}
}

func TestVerify_TamperedEventBreaksChainAtThatIndex(t *testing.T) {
	log := newTestLog(t)
	for i := 0; i < 4; i++ {
		if _, err := log.Append(Entry{TenantID: "t", Event: "e", Resource: "r"}); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	entries[2].Event = "tampered"

	ok, bad := Verify(entries)
	if ok {
		t.Fatal("Verify() = true, want false for tampered chain")
	}
	if bad != 2 {
		t.Errorf("first bad index = %d, want 2", bad)
	}
}

func TestVerify_TamperedPrevHashBreaksChainAtThatIndex(t *testing.T) {
	log := newTestLog(t)
	for i := 0; i < 3; i++ {
		if _, err := log.Append(Entry{TenantID: "t", Event: "e", Resource: "r"}); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	entries[1].PrevHash = "deadbeef"

	ok, bad := Verify(entries)
	if ok {
		t.Fatal("Verify() = true, want false")
	}
	if bad != 1 {
		t.Errorf("first bad index = %d, want 1", bad)
	}
}

func TestVerify_EmptySequenceIsOK(t *testing.T) {
	ok, bad := Verify(nil)
	if !ok || bad != -1 {
		t.Errorf("Verify(nil) = (%v, %d), want (true, -1)", ok, bad)
	}
}

func TestLogInference_PersistsDetails(t *testing.T) {
	log := newTestLog(t)
	id, err := log.LogInference("tenant-a", "user-1", "req-1", "gpt-4o", "openai", 120.5, 0.0123, true, false, "abc123", 100, 50, 200, "")
	if err != nil {
		t.Fatalf("LogInference() error: %v", err)
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != id {
		t.Errorf("ID = %q, want %q", e.ID, id)
	}
	if e.Event != "inference.completed" {
		t.Errorf("Event = %q, want inference.completed", e.Event)
	}
	if e.Details["model"] != "gpt-4o" {
		t.Errorf("Details[model] = %v, want gpt-4o", e.Details["model"])
	}
	if e.Details["provider"] != "openai" {
		t.Errorf("Details[provider] = %v, want openai", e.Details["provider"])
	}
}

func TestAppend_ConcurrentCallersSerializeCleanly(t *testing.T) {
	log := newTestLog(t)
	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := log.Append(Entry{TenantID: "t", Event: "concurrent", Resource: "r"})
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := log.store.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence() error: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("len(entries) = %d, want %d", len(entries), n)
	}
	ok, bad := Verify(entries)
	if !ok {
		t.Errorf("Verify() failed at index %d after %d concurrent appends", bad, n)
	}
}
