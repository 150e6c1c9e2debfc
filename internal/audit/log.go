package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// appendRequest is one unit of work submitted to the serializer goroutine.
type appendRequest struct {
	entry  Entry
	result chan<- appendResult
}

type appendResult struct {
	id  string
	err error
}

// Log is the tamper-evident audit trail. Append calls from any number of
// goroutines are serialized onto a single internal goroutine so that
// prev_hash chaining never races; readers may call Verify concurrently
// against an independent snapshot loaded from the store.
type Log struct {
	store *Store
	queue chan appendRequest
	done  chan struct{}
}

// NewLog starts the serializer goroutine over store and returns a ready Log.
// Close must be called to stop the goroutine on shutdown.
func NewLog(store *Store) *Log {
	l := &Log{
		store: store,
		queue: make(chan appendRequest, 256),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Log) run() {
	defer close(l.done)
	for req := range l.queue {
		id, err := l.appendSync(req.entry)
		req.result <- appendResult{id: id, err: err}
	}
}

func (l *Log) appendSync(e Entry) (string, error) {
	ctx := context.Background()
	prev, err := l.store.lastHash(ctx)
	if err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.PrevHash = prev

	hash, err := computeHash(e)
	if err != nil {
		return "", fmt.Errorf("compute audit hash: %w", err)
	}
	e.EntryHash = hash

	if err := l.store.insert(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// Append enqueues entry onto the serializer and blocks until it has been
// hash-chained and persisted, returning the assigned entry ID.
func (l *Log) Append(entry Entry) (string, error) {
	result := make(chan appendResult, 1)
	l.queue <- appendRequest{entry: entry, result: result}
	res := <-result
	return res.id, res.err
}

// LogInference records a completed inference call, mirroring the reference
// service's log_inference convenience wrapper.
func (l *Log) LogInference(tenantID, userID, requestID, model, provider string, latencyMs float64, costUSD float64, safetyPassed, piiDetected bool, promptHash string, inputTokens, outputTokens, statusCode int, errorMessage string) (string, error) {
	return l.Append(Entry{
		TenantID:   tenantID,
		ActorID:    userID,
		Event:      "inference.completed",
		Resource:   "inference",
		ResourceID: requestID,
		Details: map[string]interface{}{
			"model":         model,
			"provider":      provider,
			"latency_ms":    latencyMs,
			"cost_usd":      costUSD,
			"safety_passed": safetyPassed,
			"pii_detected":  piiDetected,
			"prompt_hash":   promptHash,
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"status_code":   statusCode,
			"error_message": errorMessage,
		},
	})
}

// LogAuth records an authentication event.
func (l *Log) LogAuth(tenantID, userID, event, ip string) (string, error) {
	return l.Append(Entry{
		TenantID:  tenantID,
		ActorID:   userID,
		Event:     event,
		Resource:  "auth",
		IPAddress: ip,
	})
}

// LogAPIKey records an API key lifecycle event.
func (l *Log) LogAPIKey(tenantID, actorID, event, keyID string) (string, error) {
	return l.Append(Entry{
		TenantID:   tenantID,
		ActorID:    actorID,
		Event:      event,
		Resource:   "api_key",
		ResourceID: keyID,
	})
}

// Verify walks entries (as loaded from Store.Sequence, for example) and
// recomputes each hash, checking it against the stored entry_hash and that
// prev_hash correctly chains to the previous entry (or genesisHash at
// index 0). It returns the index of the first entry that fails either
// check, or (true, -1) if the whole sequence verifies.
func Verify(entries []Entry) (ok bool, firstBadIndex int) {
	prev := genesisHash
	for i, e := range entries {
		stored := e.EntryHash
		e.EntryHash = ""
		computed, err := computeHash(e)
		if err != nil || computed != stored {
			return false, i
		}
		if e.PrevHash != prev {
			return false, i
		}
		prev = stored
	}
	return true, -1
}

// Close stops the serializer goroutine, allowing any already-queued
// appends to finish first.
func (l *Log) Close() {
	close(l.queue)
	<-l.done
}
