package nexus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-ai/nexus-gateway/internal/logging"
	"github.com/nexus-ai/nexus-gateway/internal/router"
	"github.com/nexus-ai/nexus-gateway/providers"
)

// StreamEventType names the three framed events Stream emits.
type StreamEventType string

const (
	StreamEventStart StreamEventType = "start"
	StreamEventToken StreamEventType = "token"
	StreamEventDone  StreamEventType = "done"
)

// StreamEvent is one framed event on the channel Stream returns.
type StreamEvent struct {
	Type      StreamEventType
	RequestID string
	Model     string
	Token     string
	Err       error
}

// Stream mirrors Orchestrate's call path but selects exactly one model (the
// router's first pick) and emits framed start/token/done events, bypassing
// synthesis entirely.
func (n *Nexus) Stream(ctx context.Context, pc PromptContext) (<-chan StreamEvent, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	ctx, _ = logging.Enter(ctx, requestID)

	piiResult := n.detector.Analyze(pc.Prompt)
	safePrompt := piiResult.RedactedText

	models := pc.OverrideModels
	if len(models) == 0 {
		models = n.router.SelectModels(safePrompt, router.Mode(modeToRouter(pc.Mode)), 1, nil)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models available for tenant %q", pc.Tenant)
	}
	modelID := models[0]
	providerName := router.ProviderFor(modelID)

	plan := n.cfg.TenantPlans[pc.Tenant]
	if n.policy != nil && plan != "" {
		if allowed, reason := n.policy.Enforce(plan, modelID, pc.Prompt, pc.MaxTokens); !allowed {
			return nil, fmt.Errorf("policy denied: %s", reason)
		}
	}

	p, ok := n.providers.Get(providerName)
	if !ok {
		return nil, &providers.CredentialMissingError{Provider: providerName}
	}
	sp, ok := p.(providers.StreamProvider)
	if !ok {
		return nil, fmt.Errorf("%s: provider does not support streaming", providerName)
	}

	perCall := time.Duration(n.cfg.PerCallTimeoutSeconds) * time.Second
	if perCall <= 0 {
		perCall = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, perCall)

	req := buildRequest(modelID, pc, safePrompt)
	chunks, err := sp.CompleteStream(callCtx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan StreamEvent)
	go func() {
		defer cancel()
		defer close(out)
		out <- StreamEvent{Type: StreamEventStart, RequestID: requestID, Model: modelID}
		for chunk := range chunks {
			if chunk.Error != nil {
				out <- StreamEvent{Type: StreamEventDone, RequestID: requestID, Model: modelID, Err: chunk.Error}
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					out <- StreamEvent{Type: StreamEventToken, RequestID: requestID, Model: modelID, Token: choice.Delta.Content}
				}
			}
		}
		out <- StreamEvent{Type: StreamEventDone, RequestID: requestID, Model: modelID}
	}()

	return out, nil
}

// sseFrame is the compact JSON body carried by each SSE "data: " line.
type sseFrame struct {
	Type      StreamEventType `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Model     string          `json:"model,omitempty"`
	Token     string          `json:"token,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// EncodeSSE renders a StreamEvent as one Server-Sent Events frame: a
// "data: "-prefixed line carrying compact JSON, followed by the blank-line
// separator SSE readers require. The producer side must stay byte-compatible
// with SSE so any standard SSE client can read the stream unchanged.
func EncodeSSE(ev StreamEvent) []byte {
	f := sseFrame{Type: ev.Type, RequestID: ev.RequestID, Model: ev.Model, Token: ev.Token}
	if ev.Err != nil {
		f.Error = ev.Err.Error()
	}
	body, _ := json.Marshal(f)
	frame := make([]byte, 0, len(body)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, body...)
	frame = append(frame, '\n', '\n')
	return frame
}

// WriteSSE drains a Stream channel to w, encoding and flushing each event as
// an SSE frame as it arrives. It returns the first write error, or nil once
// the channel closes.
func WriteSSE(w io.Writer, events <-chan StreamEvent) error {
	flusher, _ := w.(http.Flusher)
	for ev := range events {
		if _, err := w.Write(EncodeSSE(ev)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}
