// Package cost computes per-call inference cost, tracks tenant spend
// against daily and month-to-date budgets, and enforces a sliding-window
// request rate limit.
package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/nexus-ai/nexus-gateway/internal/audit"
	"github.com/nexus-ai/nexus-gateway/internal/logging"
	"github.com/nexus-ai/nexus-gateway/providers"
)

const (
	dailyTTL = 2 * 24 * time.Hour
	mtdTTL   = 35 * 24 * time.Hour
)

// ComputeCost returns the estimated USD cost of a completed call. Models
// absent from providers.PricingTable price at zero rather than error.
func ComputeCost(model, provider string, inTokens, outTokens int) float64 {
	return providers.EstimateCost(provider, model, providers.Usage{
		PromptTokens:     inTokens,
		CompletionTokens: outTokens,
	})
}

// Tracker records cost entries and answers spend/budget queries, backed by
// a CounterStore for the daily and month-to-date counters. auditStore, if
// non-nil, backs the per-model breakdown in GetCostBreakdown by replaying
// recorded inference entries; a nil auditStore degrades ByModel to an
// empty map rather than failing the call.
type Tracker struct {
	store      *CounterStore
	auditStore *audit.Store
}

// NewTracker wraps a CounterStore. auditStore may be nil, in which case
// GetCostBreakdown's ByModel is always empty.
func NewTracker(store *CounterStore, auditStore *audit.Store) *Tracker {
	return &Tracker{store: store, auditStore: auditStore}
}

func dailyKey(tenant string, day time.Time) string {
	return fmt.Sprintf("daily:%s:%s", tenant, day.UTC().Format("2006-01-02"))
}

func mtdKey(tenant string, day time.Time) string {
	return fmt.Sprintf("mtd:%s:%s", tenant, day.UTC().Format("2006-01"))
}

// Record increments the tenant's daily and month-to-date counters by cost.
// This is the synchronous half of the fire-and-forget recording the
// orchestrator performs: callers that want fire-and-forget semantics should
// invoke Record inside their own goroutine and log (never propagate) the
// error, per spec.md §4.D.
func (t *Tracker) Record(ctx context.Context, tenant string, costUSD float64) error {
	now := time.Now().UTC()
	if err := t.store.Increment(ctx, dailyKey(tenant, now), costUSD, dailyTTL); err != nil {
		return fmt.Errorf("record daily cost: %w", err)
	}
	if err := t.store.Increment(ctx, mtdKey(tenant, now), costUSD, mtdTTL); err != nil {
		return fmt.Errorf("record mtd cost: %w", err)
	}
	return nil
}

// RecordAsync spawns a goroutine to Record cost, logging (never returning)
// any failure. This is the shape the orchestrator calls directly so cost
// recording never blocks the response path.
func (t *Tracker) RecordAsync(ctx context.Context, tenant string, costUSD float64) {
	go func() {
		if err := t.Record(context.WithoutCancel(ctx), tenant, costUSD); err != nil {
			logging.FromContext(ctx).Error("cost.record.failed", "tenant", tenant, "error", err)
		}
	}()
}

// GetDailySpend returns the tenant's total recorded spend for the given
// day, or 0.0 if no entry exists (or it has expired).
func (t *Tracker) GetDailySpend(ctx context.Context, tenant string, day time.Time) (float64, error) {
	return t.store.Get(ctx, dailyKey(tenant, day))
}

// GetMTDSpend returns the tenant's total recorded spend for the current
// month, or 0.0 if no entry exists.
func (t *Tracker) GetMTDSpend(ctx context.Context, tenant string) (float64, error) {
	return t.store.Get(ctx, mtdKey(tenant, time.Now()))
}

// CheckBudget reports whether tenant is still within dailyBudget, along
// with the current spend and the fraction of budget consumed.
func (t *Tracker) CheckBudget(ctx context.Context, tenant string, dailyBudget float64) (allowed bool, spend float64, pct float64, err error) {
	spend, err = t.GetDailySpend(ctx, tenant, time.Now())
	if err != nil {
		return false, 0, 0, err
	}
	denom := dailyBudget
	if denom < 0.01 {
		denom = 0.01
	}
	return spend < dailyBudget, spend, spend / denom, nil
}

// Breakdown summarizes a tenant's spend across the tracked periods.
type Breakdown struct {
	MTDUSD   float64            `json:"mtd_usd"`
	TodayUSD float64            `json:"today_usd"`
	ByModel  map[string]float64 `json:"by_model"`
}

// GetCostBreakdown returns the tenant's MTD and today spend, plus a
// per-model breakdown of month-to-date spend assembled by replaying the
// audit log's inference.completed entries (see internal/audit), since the
// daily/MTD counters themselves aggregate across models. ByModel is empty
// if no audit store was wired in, rather than failing the call.
func (t *Tracker) GetCostBreakdown(ctx context.Context, tenant string) (Breakdown, error) {
	mtd, err := t.GetMTDSpend(ctx, tenant)
	if err != nil {
		return Breakdown{}, err
	}
	today, err := t.GetDailySpend(ctx, tenant, time.Now())
	if err != nil {
		return Breakdown{}, err
	}

	byModel, err := t.byModelBreakdown(ctx, tenant)
	if err != nil {
		return Breakdown{}, err
	}

	return Breakdown{MTDUSD: mtd, TodayUSD: today, ByModel: byModel}, nil
}

// byModelBreakdown sums cost_usd per model across the tenant's
// inference.completed audit entries recorded this UTC month.
func (t *Tracker) byModelBreakdown(ctx context.Context, tenant string) (map[string]float64, error) {
	byModel := map[string]float64{}
	if t.auditStore == nil {
		return byModel, nil
	}

	entries, err := t.auditStore.Sequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit entries for cost breakdown: %w", err)
	}

	now := time.Now().UTC()
	for _, e := range entries {
		if e.TenantID != tenant || e.Event != "inference.completed" {
			continue
		}
		if e.CreatedAt.UTC().Year() != now.Year() || e.CreatedAt.UTC().Month() != now.Month() {
			continue
		}
		model, _ := e.Details["model"].(string)
		costUSD, _ := e.Details["cost_usd"].(float64)
		if model == "" {
			continue
		}
		byModel[model] += costUSD
	}
	return byModel, nil
}
