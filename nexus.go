package nexus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nexus-ai/nexus-gateway/internal/audit"
	"github.com/nexus-ai/nexus-gateway/internal/backpressure"
	"github.com/nexus-ai/nexus-gateway/internal/cost"
	"github.com/nexus-ai/nexus-gateway/internal/logging"
	"github.com/nexus-ai/nexus-gateway/internal/pii"
	"github.com/nexus-ai/nexus-gateway/internal/policy"
	"github.com/nexus-ai/nexus-gateway/internal/router"
	"github.com/nexus-ai/nexus-gateway/providers"
)

// Nexus owns one instance each of the PII detector, model router, provider
// registry, cost tracker, audit log, and policy engine, composing them
// behind Orchestrate and Stream. Safe for concurrent use: the components it
// wraps are themselves concurrency-safe, and Nexus holds no per-request
// mutable state of its own.
type Nexus struct {
	cfg        Config
	providers  providers.ProviderSource
	router     *router.Router
	detector   *pii.Detector
	tracker    *cost.Tracker
	rateLimit  *cost.RateLimiter
	auditLog   *audit.Log
	policy     *policy.Engine
	queueDepth func() int
}

// New wires the given provider registry, cost store, and audit store into a
// ready-to-use Nexus. queueDepth, if non-nil, backs backpressure checks;
// a nil value disables backpressure (ShouldAccept always returns true).
func New(cfg Config, reg providers.ProviderSource, creds router.CredentialSource, costStore *cost.CounterStore, auditStore *audit.Store, queueDepth func() int) *Nexus {
	return &Nexus{
		cfg:        cfg,
		providers:  reg,
		router:     router.New(creds, cfg.Development),
		detector:   pii.New(),
		tracker:    cost.NewTracker(costStore, auditStore),
		rateLimit:  cost.NewRateLimiter(600, 60),
		auditLog:   audit.NewLog(auditStore),
		policy:     policy.New(cfg.Policy),
		queueDepth: queueDepth,
	}
}

// Close stops the audit log's serializer goroutine. Call once during
// shutdown after in-flight Orchestrate calls have drained.
func (n *Nexus) Close() {
	n.auditLog.Close()
}

// ShouldAccept reports whether a new request should be admitted given the
// current queue depth, per spec.md §4.H. Always true if no queueDepth probe
// was configured.
func (n *Nexus) ShouldAccept() bool {
	if n.queueDepth == nil {
		return true
	}
	return !backpressure.ShouldReject(n.queueDepth(), n.cfg.BackpressureThreshold)
}

func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Orchestrate runs the full request pipeline: PII scan, policy gate, model
// selection, parallel provider fan-out, consensus synthesis, and
// fire-and-forget cost/audit recording.
func (n *Nexus) Orchestrate(ctx context.Context, pc PromptContext) (*NexusResult, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	ctx, _ = logging.Enter(ctx, requestID)
	start := time.Now()

	if allowed, _ := n.rateLimit.Allow(pc.Tenant, start.UnixMilli()); !allowed {
		return nil, fmt.Errorf("tenant %q exceeded its rate limit", pc.Tenant)
	}

	piiResult := n.detector.Analyze(pc.Prompt)
	safePrompt := piiResult.RedactedText

	plan := n.cfg.TenantPlans[pc.Tenant]
	maxModels := pc.MaxModels
	if maxModels <= 0 {
		maxModels = n.cfg.DefaultMaxModels
	}

	models := pc.OverrideModels
	if len(models) == 0 {
		models = n.router.SelectModels(safePrompt, router.Mode(modeToRouter(pc.Mode)), maxModels, nil)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models available for tenant %q", pc.Tenant)
	}

	if n.policy != nil && plan != "" {
		for _, m := range models {
			if allowed, reason := n.policy.Enforce(plan, m, pc.Prompt, pc.MaxTokens); !allowed {
				return nil, &policy.DeniedError{Reason: reason}
			}
		}
	}

	deadline := time.Duration(n.cfg.GlobalDeadlineSeconds) * time.Second
	if deadline <= 0 {
		deadline = 120 * time.Second
	}
	fanoutCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := n.fanOut(fanoutCtx, models, pc, safePrompt)

	var valid []ModelResult
	var errs []error
	var totalCost float64
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		valid = append(valid, r)
		totalCost += r.CostUSD
	}
	if len(valid) == 0 {
		return nil, &AllProvidersFailedError{Errors: errs}
	}

	outcome := synthesize(valid, pc.Mode, n.cfg.ConsensusThreshold)
	totalLatencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	usedModels := make([]string, len(valid))
	for i, r := range valid {
		usedModels[i] = r.ModelID
	}

	result := &NexusResult{
		RequestID:      requestID,
		Mode:           pc.Mode,
		FinalResponse:  outcome.Final,
		ModelsUsed:     usedModels,
		ConsensusScore: outcome.ConsensusScore,
		TotalLatencyMs: totalLatencyMs,
		TotalCostUSD:   totalCost,
		Synthesized:    outcome.Synthesized,
		SafetyPassed:   !piiResult.HasCritical,
		PIIDetected:    piiResult.HasPII,
		PIIEntities:    piiResult.Entities,
	}

	n.recordAsync(ctx, pc, result, valid, piiResult.HasCritical, piiResult.HasPII)

	return result, nil
}

// fanOut issues one call per model concurrently and collects every result,
// including failures, without aborting siblings on a single error.
func (n *Nexus) fanOut(ctx context.Context, models []string, pc PromptContext, safePrompt string) []ModelResult {
	results := make([]ModelResult, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, modelID := range models {
		i, modelID := i, modelID
		g.Go(func() error {
			results[i] = n.callModel(gctx, modelID, pc, safePrompt)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (n *Nexus) callModel(ctx context.Context, modelID string, pc PromptContext, safePrompt string) ModelResult {
	providerName := router.ProviderFor(modelID)
	start := time.Now()

	callCtx := ctx
	perCall := time.Duration(n.cfg.PerCallTimeoutSeconds) * time.Second
	if perCall <= 0 {
		perCall = 60 * time.Second
	}
	var cancel context.CancelFunc
	callCtx, cancel = context.WithTimeout(callCtx, perCall)
	defer cancel()

	p, ok := n.providers.Get(providerName)
	if !ok {
		return ModelResult{ModelID: modelID, Provider: providerName, Err: &providers.CredentialMissingError{Provider: providerName}}
	}

	req := buildRequest(modelID, pc, safePrompt)
	resp, err := p.Complete(callCtx, req)
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return ModelResult{ModelID: modelID, Provider: providerName, LatencyMs: latencyMs, Err: err}
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	costUSD := providers.EstimateCost(providerName, modelID, resp.Usage)

	return ModelResult{
		ModelID:      modelID,
		Provider:     providerName,
		Response:     text,
		LatencyMs:    latencyMs,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		CostUSD:      costUSD,
	}
}

func buildRequest(modelID string, pc PromptContext, safePrompt string) providers.Request {
	var messages []providers.Message
	if pc.System != "" {
		messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: pc.System})
	}
	for _, m := range pc.Messages {
		messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: safePrompt})

	req := providers.Request{Model: modelID, Messages: messages}
	if pc.Temperature > 0 {
		t := pc.Temperature
		req.Temperature = &t
	}
	if pc.MaxTokens > 0 {
		mt := pc.MaxTokens
		req.MaxTokens = &mt
	}
	return req
}

// recordAsync fires the cost-tracker and audit-log writes on goroutines
// that survive request cancellation, per spec.md §4.G step 7. It logs one
// audit entry per successful model result (not one aggregate entry for the
// whole fan-out) so each entry's cost_usd attributes to the model that
// actually produced it; GetCostBreakdown's ByModel assembly in
// internal/cost depends on this per-model granularity.
func (n *Nexus) recordAsync(ctx context.Context, pc PromptContext, result *NexusResult, valid []ModelResult, hasCritical, hasPII bool) {
	n.tracker.RecordAsync(ctx, pc.Tenant, result.TotalCostUSD)

	bg := context.WithoutCancel(ctx)
	go func() {
		for _, r := range valid {
			if _, err := n.auditLog.LogInference(
				pc.Tenant, pc.Actor, result.RequestID, r.ModelID, r.Provider,
				r.LatencyMs, r.CostUSD, !hasCritical, hasPII,
				promptHash(pc.Prompt), r.InputTokens, r.OutputTokens, 200, "",
			); err != nil {
				logging.FromContext(bg).Error("audit append failed", "request_id", result.RequestID, "model", r.ModelID, "error", err)
			}
		}
	}()
}

func modeToRouter(m Mode) string {
	switch m {
	case ModeChat:
		return string(router.ModeChat)
	case ModeCode:
		return string(router.ModeCode)
	case ModeReasoning:
		return string(router.ModeReasoning)
	case ModeSearchRAG:
		return string(router.ModeSearchRAG)
	case ModeMultiModel:
		return string(router.ModeMultiModel)
	case ModeFast:
		return string(router.ModeFast)
	case ModeCreative:
		return string(router.ModeCreative)
	default:
		return string(router.ModeChat)
	}
}
