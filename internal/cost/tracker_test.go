package cost

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nexus-ai/nexus-gateway/internal/audit"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	store, err := NewSQLiteCounterStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteCounterStore() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewTracker(store, nil)
}

func newTestTrackerWithAudit(t *testing.T) (*Tracker, *audit.Store) {
	t.Helper()
	store, err := NewSQLiteCounterStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteCounterStore() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	auditStore, err := audit.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("audit.NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { _ = auditStore.Close() })
	return NewTracker(store, auditStore), auditStore
}

func TestComputeCost_KnownModel(t *testing.T) {
	cost := ComputeCost("gpt-4o", "openai", 1000, 500)
	expected := 0.0025 + 0.005
	if math.Abs(cost-expected) > 1e-9 {
		t.Errorf("ComputeCost() = %v, want %v", cost, expected)
	}
}

func TestComputeCost_UnknownModelIsZero(t *testing.T) {
	if c := ComputeCost("no-such-model", "openai", 1000, 500); c != 0 {
		t.Errorf("ComputeCost() for unknown model = %v, want 0", c)
	}
}

func TestComputeCost_DoublingTokensDoublesCost(t *testing.T) {
	base := ComputeCost("gpt-4o", "openai", 1000, 500)
	doubled := ComputeCost("gpt-4o", "openai", 2000, 1000)
	if math.Abs(doubled-2*base) > 1e-9 {
		t.Errorf("doubling tokens gave %v, want %v", doubled, 2*base)
	}
}

func TestTracker_RecordAndGetDailySpend(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Record(ctx, "tenant-a", 1.25); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := tr.Record(ctx, "tenant-a", 0.75); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	spend, err := tr.GetDailySpend(ctx, "tenant-a", time.Now())
	if err != nil {
		t.Fatalf("GetDailySpend() error: %v", err)
	}
	if math.Abs(spend-2.0) > 1e-9 {
		t.Errorf("GetDailySpend() = %v, want 2.0", spend)
	}
}

func TestTracker_GetDailySpend_MissingKeyIsZero(t *testing.T) {
	tr := newTestTracker(t)
	spend, err := tr.GetDailySpend(context.Background(), "unknown-tenant", time.Now())
	if err != nil {
		t.Fatalf("GetDailySpend() error: %v", err)
	}
	if spend != 0 {
		t.Errorf("GetDailySpend() = %v, want 0", spend)
	}
}

func TestTracker_CheckBudget(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	_ = tr.Record(ctx, "tenant-b", 5.0)

	allowed, spend, pct, err := tr.CheckBudget(ctx, "tenant-b", 10.0)
	if err != nil {
		t.Fatalf("CheckBudget() error: %v", err)
	}
	if !allowed {
		t.Error("CheckBudget() allowed = false, want true")
	}
	if math.Abs(spend-5.0) > 1e-9 {
		t.Errorf("spend = %v, want 5.0", spend)
	}
	if math.Abs(pct-0.5) > 1e-9 {
		t.Errorf("pct = %v, want 0.5", pct)
	}

	allowed, _, _, err = tr.CheckBudget(ctx, "tenant-b", 4.0)
	if err != nil {
		t.Fatalf("CheckBudget() error: %v", err)
	}
	if allowed {
		t.Error("CheckBudget() allowed = true, want false when spend exceeds budget")
	}
}

func TestTracker_GetCostBreakdown_ByModelFromAuditLog(t *testing.T) {
	tr, auditStore := newTestTrackerWithAudit(t)
	ctx := context.Background()
	log := audit.NewLog(auditStore)
	t.Cleanup(log.Close)

	_ = tr.Record(ctx, "tenant-c", 0.03)
	if _, err := log.LogInference("tenant-c", "user-1", "req-1", "gpt-4o", "openai", 120, 0.02, true, false, "hash1", 100, 50, 200, ""); err != nil {
		t.Fatalf("LogInference() error: %v", err)
	}
	if _, err := log.LogInference("tenant-c", "user-1", "req-2", "claude-3-5-sonnet-20241022", "anthropic", 150, 0.01, true, false, "hash2", 80, 40, 200, ""); err != nil {
		t.Fatalf("LogInference() error: %v", err)
	}
	if _, err := log.LogInference("tenant-other", "user-2", "req-3", "gpt-4o", "openai", 100, 99.0, true, false, "hash3", 10, 10, 200, ""); err != nil {
		t.Fatalf("LogInference() error: %v", err)
	}

	breakdown, err := tr.GetCostBreakdown(ctx, "tenant-c")
	if err != nil {
		t.Fatalf("GetCostBreakdown() error: %v", err)
	}
	if math.Abs(breakdown.ByModel["gpt-4o"]-0.02) > 1e-9 {
		t.Errorf("ByModel[gpt-4o] = %v, want 0.02", breakdown.ByModel["gpt-4o"])
	}
	if math.Abs(breakdown.ByModel["claude-3-5-sonnet-20241022"]-0.01) > 1e-9 {
		t.Errorf("ByModel[claude-3-5-sonnet-20241022] = %v, want 0.01", breakdown.ByModel["claude-3-5-sonnet-20241022"])
	}
	if _, ok := breakdown.ByModel["tenant-other-never-leaks"]; ok {
		t.Error("ByModel should not contain other tenants' models")
	}
	if len(breakdown.ByModel) != 2 {
		t.Errorf("len(ByModel) = %d, want 2", len(breakdown.ByModel))
	}
}

func TestTracker_GetCostBreakdown_NilAuditStoreYieldsEmptyByModel(t *testing.T) {
	tr := newTestTracker(t)
	breakdown, err := tr.GetCostBreakdown(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("GetCostBreakdown() error: %v", err)
	}
	if len(breakdown.ByModel) != 0 {
		t.Errorf("len(ByModel) = %d, want 0 with no audit store wired", len(breakdown.ByModel))
	}
}

func TestRateLimiter_AdmitsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, 60)
	for i := 0; i < 3; i++ {
		allowed, remaining := rl.Allow("k1", int64(i))
		if !allowed {
			t.Fatalf("check %d: expected admit", i)
		}
		if remaining != 2-i {
			t.Errorf("check %d: remaining = %d, want %d", i, remaining, 2-i)
		}
	}
	allowed, remaining := rl.Allow("k1", 3)
	if allowed {
		t.Error("4th check should be rejected")
	}
	if remaining != 0 {
		t.Errorf("remaining on reject = %d, want 0", remaining)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 10) // 10 second window
	allowed, _ := rl.Allow("k2", 0)
	if !allowed {
		t.Fatal("first check should admit")
	}
	allowed, _ = rl.Allow("k2", 5000)
	if allowed {
		t.Fatal("second check within window should reject")
	}
	allowed, _ = rl.Allow("k2", 10001)
	if !allowed {
		t.Fatal("check after window expiry should admit")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 60)
	a, _ := rl.Allow("tenant-a", 0)
	b, _ := rl.Allow("tenant-b", 0)
	if !a || !b {
		t.Error("distinct keys should not share quota")
	}
}
