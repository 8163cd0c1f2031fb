package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akshatvasisht/oversite/internal/model"
)

// Memory is an in-process Store backed by maps. Values are copied on the
// way in and out so callers never share memory with the store.
type Memory struct {
	mu           sync.RWMutex
	sessions     map[string]model.Session
	files        map[string]model.File
	events       []model.Event
	interactions []model.Interaction
	suggestions  map[string]model.Suggestion
	decisions    map[string]model.ChunkDecision // keyed by suggestionID/chunkIndex
	snapshots    []model.EditorSnapshot
	scores       map[string]model.SessionScore // keyed by session ID
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:    make(map[string]model.Session),
		files:       make(map[string]model.File),
		suggestions: make(map[string]model.Suggestion),
		decisions:   make(map[string]model.ChunkDecision),
		scores:      make(map[string]model.SessionScore),
	}
}

func decisionKey(suggestionID string, chunkIndex int) string {
	return fmt.Sprintf("%s/%d", suggestionID, chunkIndex)
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (m *Memory) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = ensureID(s.ID)
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *Memory) EndSession(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	s.EndedAt = &at
	m.sessions[id] = s
	return nil
}

func (m *Memory) CreateFile(_ context.Context, f *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = ensureID(f.ID)
	m.files[f.ID] = *f
	return nil
}

func (m *Memory) GetFile(_ context.Context, id string) (*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, model.ErrNotFound)
	}
	return &f, nil
}

func (m *Memory) ListFiles(_ context.Context, sessionID string) ([]model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.File
	for _, f := range m.files {
		if f.SessionID == sessionID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AppendEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEventLocked(e)
}

func (m *Memory) appendEventLocked(e *model.Event) error {
	e.ID = ensureID(e.ID)
	m.events = append(m.events, *e)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, sessionID string) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) CreateInteraction(_ context.Context, in *model.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = ensureID(in.ID)
	m.interactions = append(m.interactions, *in)
	return nil
}

func (m *Memory) ListInteractions(_ context.Context, sessionID string) ([]model.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Interaction
	for _, in := range m.interactions {
		if in.SessionID == sessionID {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ShownAt.Before(out[j].ShownAt) })
	return out, nil
}

func (m *Memory) CreateSuggestion(_ context.Context, s *model.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = ensureID(s.ID)
	m.suggestions[s.ID] = *s
	return nil
}

func (m *Memory) GetSuggestion(_ context.Context, id string) (*model.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.suggestions[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %s: %w", id, model.ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) SetHunksCount(_ context.Context, suggestionID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[suggestionID]
	if !ok {
		return fmt.Errorf("suggestion %s: %w", suggestionID, model.ErrNotFound)
	}
	s.HunksCount = &count
	m.suggestions[suggestionID] = s
	return nil
}

func (m *Memory) GetDecision(_ context.Context, suggestionID string, chunkIndex int) (*model.ChunkDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decisions[decisionKey(suggestionID, chunkIndex)]
	if !ok {
		return nil, fmt.Errorf("decision %s/%d: %w", suggestionID, chunkIndex, model.ErrNotFound)
	}
	return &d, nil
}

func (m *Memory) ListSuggestionDecisions(_ context.Context, suggestionID string) ([]model.ChunkDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ChunkDecision
	for _, d := range m.decisions {
		if d.SuggestionID == suggestionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *Memory) ListDecisions(_ context.Context, sessionID string) ([]model.ChunkDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ChunkDecision
	for _, d := range m.decisions {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DecidedAt.Before(out[j].DecidedAt) })
	return out, nil
}

func (m *Memory) ApplyDecision(_ context.Context, d *model.ChunkDecision, audit *model.Event, res *model.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := decisionKey(d.SuggestionID, d.ChunkIndex)
	if _, exists := m.decisions[key]; exists {
		return fmt.Errorf("decision %s: %w", key, model.ErrAlreadyDecided)
	}

	d.ID = ensureID(d.ID)
	m.decisions[key] = *d
	if audit != nil {
		if err := m.appendEventLocked(audit); err != nil {
			delete(m.decisions, key)
			return err
		}
	}
	if res != nil {
		if err := m.applyResolutionLocked(res); err != nil {
			delete(m.decisions, key)
			return err
		}
	}
	return nil
}

func (m *Memory) applyResolutionLocked(res *model.Resolution) error {
	s, ok := m.suggestions[res.SuggestionID]
	if !ok {
		return fmt.Errorf("suggestion %s: %w", res.SuggestionID, model.ErrNotFound)
	}
	resolvedAt := res.ResolvedAt
	allAccepted := res.AllAccepted
	anyModified := res.AnyModified
	s.ResolvedAt = &resolvedAt
	s.AllAccepted = &allAccepted
	s.AnyModified = &anyModified
	m.suggestions[res.SuggestionID] = s
	return nil
}

func (m *Memory) ResolveSuggestion(_ context.Context, res *model.Resolution, snap *model.EditorSnapshot, audit *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.applyResolutionLocked(res); err != nil {
		return err
	}
	if snap != nil {
		snap.ID = ensureID(snap.ID)
		m.snapshots = append(m.snapshots, *snap)
	}
	if audit != nil {
		return m.appendEventLocked(audit)
	}
	return nil
}

func (m *Memory) SaveSnapshot(_ context.Context, snap *model.EditorSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.ID = ensureID(snap.ID)
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *Memory) LatestSnapshot(_ context.Context, fileID string) (*model.EditorSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].FileID == fileID {
			snap := m.snapshots[i]
			return &snap, nil
		}
	}
	return nil, fmt.Errorf("snapshot for file %s: %w", fileID, model.ErrNotFound)
}

func (m *Memory) ListSnapshots(_ context.Context, sessionID string) ([]model.EditorSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.EditorSnapshot
	for _, snap := range m.snapshots {
		if snap.SessionID == sessionID {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) SaveScore(_ context.Context, sc *model.SessionScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc.ID = ensureID(sc.ID)
	m.scores[sc.SessionID] = *sc
	return nil
}

func (m *Memory) GetScore(_ context.Context, sessionID string) (*model.SessionScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scores[sessionID]
	if !ok {
		return nil, fmt.Errorf("score for session %s: %w", sessionID, model.ErrNotFound)
	}
	return &sc, nil
}

func (m *Memory) SetNarrative(_ context.Context, scoreID, narrative string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sessionID, sc := range m.scores {
		if sc.ID == scoreID {
			sc.Narrative = narrative
			m.scores[sessionID] = sc
			return nil
		}
	}
	return fmt.Errorf("score %s: %w", scoreID, model.ErrNotFound)
}

func (m *Memory) Close() error { return nil }
