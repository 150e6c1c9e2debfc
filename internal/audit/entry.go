// Package audit implements an append-only, hash-chained audit log: every
// entry's hash covers the previous entry's hash, so altering or removing
// any entry is detectable by recomputing the chain.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// genesisHash is the prev_hash of the first entry ever appended.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000"

// Entry is one audit record. EntryHash and PrevHash are populated by the
// Log on Append and must never be set by callers.
type Entry struct {
	ID         string
	TenantID   string
	ActorID    string
	Event      string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	IPAddress  string
	PrevHash   string
	EntryHash  string
	CreatedAt  time.Time
}

// canonicalJSON renders entry (minus EntryHash) as JSON with lexicographically
// sorted keys at every object level and no incidental whitespace. Go's
// encoding/json sorts map[string]interface{} keys when marshaling, so the
// canonical form is built as a map rather than marshaled directly from the
// struct (which would preserve field declaration order instead).
func canonicalJSON(e Entry) ([]byte, error) {
	m := map[string]interface{}{
		"id":          e.ID,
		"tenant_id":   e.TenantID,
		"actor_id":    e.ActorID,
		"event":       e.Event,
		"resource":    e.Resource,
		"resource_id": e.ResourceID,
		"details":     e.Details,
		"ip_address":  e.IPAddress,
		"prev_hash":   e.PrevHash,
		"created_at":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(m)
}

// computeHash returns the hex-encoded SHA-256 of entry's canonical JSON.
func computeHash(e Entry) (string, error) {
	body, err := canonicalJSON(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
