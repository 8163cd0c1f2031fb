// Package track owns the lifecycle of AI suggestions: decomposing them
// into hunks, recording write-once chunk decisions, and resolving the
// suggestion when every chunk is decided.
package track

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akshatvasisht/oversite/internal/diff"
	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/store"
)

// Tracker coordinates chunk decisions against the store. Decisions on
// the same suggestion are serialized so the decided-count check and the
// write it guards see a consistent view.
type Tracker struct {
	store store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a tracker over the given store.
func New(st store.Store) *Tracker {
	return &Tracker{store: st, locks: make(map[string]*sync.Mutex)}
}

func (t *Tracker) suggestionLock(id string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// Register decomposes a new suggestion into hunks and records the hunk
// count. The returned hunks are what the client renders for review.
func (t *Tracker) Register(ctx context.Context, sg *model.Suggestion) ([]model.Hunk, error) {
	if err := t.store.CreateSuggestion(ctx, sg); err != nil {
		return nil, err
	}
	hunks := diff.Decompose(sg.OriginalContent, sg.ProposedContent)
	if err := t.store.SetHunksCount(ctx, sg.ID, len(hunks)); err != nil {
		return nil, err
	}
	n := len(hunks)
	sg.HunksCount = &n
	return hunks, nil
}

// DecideRequest is one chunk judgment submitted by the client.
// SessionID is the authenticated session; it must own the suggestion.
type DecideRequest struct {
	SessionID     string
	SuggestionID  string
	ChunkIndex    int
	Decision      model.Decision
	FinalCode     string
	TimeOnChunkMS int
	Actor         string
}

// DecideResult reports the recorded decision and, when this decision was
// the last undecided chunk, the suggestion's resolution.
type DecideResult struct {
	Decision   *model.ChunkDecision
	Resolution *model.Resolution
}

// Decide validates and records one chunk decision. Validation order is
// fixed: unknown or foreign suggestion, then chunk index range, then the
// write-once check, then the decision value. Deliberation time is
// clamped, never rejected. The decision, its audit event, and any
// resolution are persisted atomically.
func (t *Tracker) Decide(ctx context.Context, req DecideRequest) (*DecideResult, error) {
	lock := t.suggestionLock(req.SuggestionID)
	lock.Lock()
	defer lock.Unlock()

	sg, err := t.store.GetSuggestion(ctx, req.SuggestionID)
	if err != nil {
		return nil, err
	}
	// A suggestion owned by another session is indistinguishable from a
	// missing one.
	if sg.SessionID != req.SessionID {
		return nil, fmt.Errorf("suggestion %s: %w", req.SuggestionID, model.ErrNotFound)
	}

	if req.ChunkIndex < 0 {
		return nil, fmt.Errorf("chunk index %d: %w", req.ChunkIndex, model.ErrInvalidChunkIndex)
	}
	// An unknown hunk count permits any non-negative index.
	if sg.HunksCount != nil && req.ChunkIndex >= *sg.HunksCount {
		return nil, fmt.Errorf("chunk index %d of %d: %w", req.ChunkIndex, *sg.HunksCount, model.ErrInvalidChunkIndex)
	}

	if _, err := t.store.GetDecision(ctx, req.SuggestionID, req.ChunkIndex); err == nil {
		return nil, fmt.Errorf("chunk %d: %w", req.ChunkIndex, model.ErrAlreadyDecided)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	if !req.Decision.Valid() {
		return nil, fmt.Errorf("decision %q: %w", req.Decision, model.ErrInvalidDecision)
	}

	now := time.Now().UTC()
	d := &model.ChunkDecision{
		SuggestionID:  sg.ID,
		SessionID:     sg.SessionID,
		FileID:        sg.FileID,
		ChunkIndex:    req.ChunkIndex,
		FinalCode:     req.FinalCode,
		Decision:      req.Decision,
		TimeOnChunkMS: model.ClampTimeOnChunk(req.TimeOnChunkMS),
		DecidedAt:     now,
	}

	// Hunk content is recovered from the stored contents rather than
	// trusted from the client.
	hunks := diff.Decompose(sg.OriginalContent, sg.ProposedContent)
	if req.ChunkIndex < len(hunks) {
		h := hunks[req.ChunkIndex]
		d.OriginalCode = h.OriginalCode
		d.ProposedCode = h.ProposedCode
		d.ChunkStartLine = h.StartLine
		d.ProposedCharCount = h.ProposedCharCount
	}

	audit := &model.Event{
		SessionID: sg.SessionID,
		Timestamp: now,
		Actor:     req.Actor,
		EventType: "chunk_" + string(req.Decision),
		Content:   req.FinalCode,
		Metadata: map[string]any{
			"suggestion_id":    sg.ID,
			"chunk_index":      req.ChunkIndex,
			"time_on_chunk_ms": d.TimeOnChunkMS,
		},
	}

	res, err := t.pendingResolution(ctx, sg, d, now)
	if err != nil {
		return nil, err
	}

	if err := t.store.ApplyDecision(ctx, d, audit, res); err != nil {
		return nil, err
	}
	return &DecideResult{Decision: d, Resolution: res}, nil
}

// pendingResolution returns the resolution this decision completes, or
// nil when chunks remain undecided or the hunk count is unknown.
func (t *Tracker) pendingResolution(ctx context.Context, sg *model.Suggestion, d *model.ChunkDecision, at time.Time) (*model.Resolution, error) {
	if sg.HunksCount == nil || sg.Resolved() {
		return nil, nil
	}
	prior, err := t.store.ListSuggestionDecisions(ctx, sg.ID)
	if err != nil {
		return nil, err
	}
	if len(prior)+1 < *sg.HunksCount {
		return nil, nil
	}

	res := &model.Resolution{
		SuggestionID: sg.ID,
		ResolvedAt:   at,
		AllAccepted:  true,
	}
	all := append(prior, *d)
	for _, pd := range all {
		if pd.Decision != model.DecisionAccepted {
			res.AllAccepted = false
		}
		if pd.Decision == model.DecisionModified {
			res.AnyModified = true
		}
	}
	return res, nil
}

// ResolveRequest force-resolves a suggestion with the file's final
// content and the client's reported outcome. SessionID is the
// authenticated session; it must own the suggestion.
type ResolveRequest struct {
	SessionID    string
	SuggestionID string
	FinalContent string
	AllAccepted  bool
	AnyModified  bool
	Actor        string
}

// Resolve force-resolves a suggestion regardless of undecided chunks.
// FinalContent is required; the snapshot records it with its delta
// against the suggestion's original. AllAccepted and AnyModified are
// persisted as reported: the client saw the full review, the server may
// not have a decision for every chunk.
func (t *Tracker) Resolve(ctx context.Context, req ResolveRequest) (*model.Resolution, error) {
	lock := t.suggestionLock(req.SuggestionID)
	lock.Lock()
	defer lock.Unlock()

	sg, err := t.store.GetSuggestion(ctx, req.SuggestionID)
	if err != nil {
		return nil, err
	}
	if sg.SessionID != req.SessionID {
		return nil, fmt.Errorf("suggestion %s: %w", req.SuggestionID, model.ErrNotFound)
	}
	if sg.Resolved() {
		return nil, fmt.Errorf("suggestion %s: %w", req.SuggestionID, model.ErrAlreadyResolved)
	}
	if req.FinalContent == "" {
		return nil, fmt.Errorf("final_content: %w", model.ErrMissingField)
	}

	now := time.Now().UTC()
	res := &model.Resolution{
		SuggestionID: sg.ID,
		ResolvedAt:   now,
		AllAccepted:  req.AllAccepted,
		AnyModified:  req.AnyModified,
	}

	snap := &model.EditorSnapshot{
		SessionID:    sg.SessionID,
		FileID:       sg.FileID,
		Trigger:      "suggestion_resolved",
		Content:      req.FinalContent,
		EditDelta:    diff.ComputeEditDelta(sg.OriginalContent, req.FinalContent),
		SuggestionID: sg.ID,
		Timestamp:    now,
		CharCount:    len(req.FinalContent),
	}
	audit := &model.Event{
		SessionID: sg.SessionID,
		Timestamp: now,
		Actor:     req.Actor,
		EventType: "suggestion_resolved",
		Content:   req.FinalContent,
		Metadata: map[string]any{
			"suggestion_id": sg.ID,
			"all_accepted":  req.AllAccepted,
			"any_modified":  req.AnyModified,
		},
	}

	if err := t.store.ResolveSuggestion(ctx, res, snap, audit); err != nil {
		return nil, err
	}
	return res, nil
}

// Progress reports how many chunks of a suggestion are decided.
func (t *Tracker) Progress(ctx context.Context, suggestionID string) (decided, total int, err error) {
	sg, err := t.store.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return 0, 0, err
	}
	decisions, err := t.store.ListSuggestionDecisions(ctx, suggestionID)
	if err != nil {
		return 0, 0, err
	}
	if sg.HunksCount != nil {
		total = *sg.HunksCount
	}
	return len(decisions), total, nil
}
