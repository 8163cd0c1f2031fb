package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akshatvasisht/oversite/internal/diff"
	"github.com/akshatvasisht/oversite/internal/judge"
	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/store"
)

func TestPipelineEmptySession(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := &model.Session{Username: "u", ProjectName: "p", StartedAt: time.Now()}
	if err := st.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	p := NewPipeline(st, NewRegistry("", true), nil)
	sc, err := p.Run(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}

	if sc.WeightedScore != 3.0 || sc.OverallLabel != model.LabelBalanced {
		t.Errorf("empty session score = (%v, %q), want (3.0, balanced)", sc.WeightedScore, sc.OverallLabel)
	}
	if sc.Narrative != notEnoughData {
		t.Errorf("narrative = %q, want %q", sc.Narrative, notEnoughData)
	}
	if len(sc.FallbackComponents) != 3 {
		t.Errorf("all three components should be flagged as fallback, got %v", sc.FallbackComponents)
	}

	persisted, err := st.GetScore(ctx, s.ID)
	if err != nil {
		t.Fatalf("score not persisted: %v", err)
	}
	if persisted.Narrative != notEnoughData {
		t.Errorf("persisted narrative = %q", persisted.Narrative)
	}
}

func TestPipelineUnknownSession(t *testing.T) {
	p := NewPipeline(store.NewMemory(), NewRegistry("", true), nil)
	_, err := p.Run(context.Background(), "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func seedActiveSession(t *testing.T, st store.Store) *model.Session {
	t.Helper()
	ctx := context.Background()
	s := &model.Session{Username: "u", ProjectName: "p", StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	if err := st.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	if err := st.CreateInteraction(ctx, &model.Interaction{
		SessionID: s.ID, FileID: "f1",
		Prompt:  "How do I implement two sum? `int[] result`",
		ShownAt: s.StartedAt.Add(time.Minute), Phase: model.PhaseImplementation,
	}); err != nil {
		t.Fatal(err)
	}

	sg := &model.Suggestion{SessionID: s.ID, InteractionID: "i1", FileID: "f1", ShownAt: s.StartedAt}
	if err := st.CreateSuggestion(ctx, sg); err != nil {
		t.Fatal(err)
	}
	if err := st.ApplyDecision(ctx, &model.ChunkDecision{
		SuggestionID: sg.ID, SessionID: s.ID, FileID: "f1", ChunkIndex: 0,
		ProposedCode: "new", FinalCode: "new_modified_longer",
		Decision: model.DecisionModified, TimeOnChunkMS: 5000,
		DecidedAt: s.StartedAt.Add(2 * time.Minute),
	}, nil, nil); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPipelineScoresRichSession(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := seedActiveSession(t, st)

	p := NewPipeline(st, NewRegistry("", true), nil)
	sc, err := p.Run(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Behavioral falls back (3.0), the single prompt scores 3.5, the
	// single modified decision scores 4.5.
	if sc.BehavioralScore != 3.0 || !hasFallback(sc, "behavioral") {
		t.Errorf("behavioral = %v fallback=%v", sc.BehavioralScore, sc.FallbackComponents)
	}
	if sc.PromptScore != 3.5 {
		t.Errorf("prompt score = %v, want 3.5", sc.PromptScore)
	}
	if sc.ReviewScore != 4.5 {
		t.Errorf("review score = %v, want 4.5", sc.ReviewScore)
	}
	want, wantLabel := Aggregate(3.0, 3.5, 4.5, nil)
	if sc.WeightedScore != want || sc.OverallLabel != wantLabel {
		t.Errorf("weighted = (%v, %q), want (%v, %q)", sc.WeightedScore, sc.OverallLabel, want, wantLabel)
	}
	if sc.Narrative == "" || sc.Narrative == notEnoughData {
		t.Errorf("active session should carry a real narrative, got %q", sc.Narrative)
	}

	// A second run serves from the registry cache.
	cached, err := p.Cached(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cached.WeightedScore != sc.WeightedScore {
		t.Errorf("cached score = %v, want %v", cached.WeightedScore, sc.WeightedScore)
	}
}

func TestExcerptCarriesSnapshotLineStats(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := seedActiveSession(t, st)

	after := "a = 1\nb = 2\nc = 3\n"
	if err := st.SaveSnapshot(ctx, &model.EditorSnapshot{
		SessionID: s.ID, FileID: "f1", Trigger: "editor_edit",
		Content: after, EditDelta: diff.ComputeEditDelta("a = 1\n", after),
		Timestamp: s.StartedAt.Add(time.Minute), CharCount: len(after),
	}); err != nil {
		t.Fatal(err)
	}

	p := NewPipeline(st, NewRegistry("", true), nil)
	ex := p.excerpt(ctx, s, nil, nil, nil)
	if ex.LinesAdded != 2 || ex.LinesDeleted != 0 {
		t.Errorf("manual edit lines = +%d/-%d, want +2/-0", ex.LinesAdded, ex.LinesDeleted)
	}
}

type stubNarrator struct {
	text string
	err  error
}

func (s stubNarrator) Narrate(context.Context, judge.Excerpt, *model.SessionScore) (string, error) {
	return s.text, s.err
}

func TestNarrateUpdatesPersistedScore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := seedActiveSession(t, st)

	p := NewPipeline(st, NewRegistry("", true), stubNarrator{text: "thoughtful, hands-on review"})
	sc, err := p.Run(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Drive the narrative synchronously instead of racing the goroutine.
	p.narrate(judge.Excerpt{}, sc)

	got, err := st.GetScore(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Narrative != "thoughtful, hands-on review" {
		t.Errorf("narrative = %q", got.Narrative)
	}
}

func TestNarrateFailureKeepsFallback(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := seedActiveSession(t, st)

	p := NewPipeline(st, NewRegistry("", true), stubNarrator{err: errors.New("model unavailable")})
	sc, err := p.Run(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	fallback := sc.Narrative

	p.narrate(judge.Excerpt{}, sc)

	got, err := st.GetScore(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Narrative != fallback {
		t.Errorf("narrative = %q, want fallback %q preserved", got.Narrative, fallback)
	}
}

func hasFallback(sc *model.SessionScore, name string) bool {
	for _, c := range sc.FallbackComponents {
		if c == name {
			return true
		}
	}
	return false
}
