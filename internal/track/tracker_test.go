package track

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/store"
)

const (
	original = "def add(a, b):\n    return a + b\n"
	proposed = "def add(a, b):\n    total = a + b\n    return total\n"
)

func setup(t *testing.T) (*Tracker, store.Store, *model.Suggestion) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	s := &model.Session{Username: "u", ProjectName: "p", StartedAt: time.Now()}
	if err := st.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	tr := New(st)
	sg := &model.Suggestion{
		SessionID: s.ID, InteractionID: "i1", FileID: "f1",
		OriginalContent: original, ProposedContent: proposed,
		ShownAt: time.Now(),
	}
	hunks, err := tr.Register(ctx, sg)
	if err != nil {
		t.Fatal(err)
	}
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk from the replacement, got %d", len(hunks))
	}
	return tr, st, sg
}

func TestDecideRecordsDecision(t *testing.T) {
	ctx := context.Background()
	tr, st, sg := setup(t)

	res, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionAccepted, TimeOnChunkMS: 5000,
		FinalCode: "    total = a + b\n    return total\n",
		Actor:     "candidate",
	})
	if err != nil {
		t.Fatal(err)
	}

	d := res.Decision
	if d.TimeOnChunkMS != 5000 {
		t.Errorf("in-range time was altered: %d", d.TimeOnChunkMS)
	}
	if d.ProposedCode == "" || d.OriginalCode == "" {
		t.Error("hunk content should be derived from the stored suggestion")
	}

	// Single hunk, so the first decision also resolves the suggestion.
	if res.Resolution == nil {
		t.Fatal("deciding the last chunk must resolve the suggestion")
	}
	if !res.Resolution.AllAccepted || res.Resolution.AnyModified {
		t.Errorf("resolution = %+v, want all accepted", res.Resolution)
	}

	events, err := st.ListEvents(ctx, sg.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != "chunk_accepted" {
		t.Fatalf("audit trail = %+v", events)
	}
	if events[0].Metadata["chunk_index"] != 0 {
		t.Errorf("audit metadata = %+v", events[0].Metadata)
	}
}

func TestDecideValidationOrder(t *testing.T) {
	ctx := context.Background()
	tr, _, sg := setup(t)

	_, err := tr.Decide(ctx, DecideRequest{SessionID: sg.SessionID, SuggestionID: "missing", ChunkIndex: 0, Decision: model.DecisionAccepted})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown suggestion: err = %v, want ErrNotFound", err)
	}

	_, err = tr.Decide(ctx, DecideRequest{SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 5, Decision: model.DecisionAccepted})
	if !errors.Is(err, model.ErrInvalidChunkIndex) {
		t.Errorf("out-of-range index: err = %v, want ErrInvalidChunkIndex", err)
	}

	_, err = tr.Decide(ctx, DecideRequest{SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: -1, Decision: model.DecisionAccepted})
	if !errors.Is(err, model.ErrInvalidChunkIndex) {
		t.Errorf("negative index: err = %v, want ErrInvalidChunkIndex", err)
	}

	// Bad index wins over bad decision value.
	_, err = tr.Decide(ctx, DecideRequest{SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 5, Decision: "maybe"})
	if !errors.Is(err, model.ErrInvalidChunkIndex) {
		t.Errorf("index checked before decision value: err = %v", err)
	}

	_, err = tr.Decide(ctx, DecideRequest{SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0, Decision: "maybe"})
	if !errors.Is(err, model.ErrInvalidDecision) {
		t.Errorf("bad decision value: err = %v, want ErrInvalidDecision", err)
	}
}

func TestDecideRejectsForeignSession(t *testing.T) {
	ctx := context.Background()
	tr, st, sg := setup(t)

	other := &model.Session{Username: "someone-else", ProjectName: "p", StartedAt: time.Now()}
	if err := st.CreateSession(ctx, other); err != nil {
		t.Fatal(err)
	}

	_, err := tr.Decide(ctx, DecideRequest{
		SessionID: other.ID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionAccepted, TimeOnChunkMS: 1000,
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("foreign session decide: err = %v, want ErrNotFound", err)
	}

	// Nothing was persisted for the foreign attempt.
	if _, err := st.GetDecision(ctx, sg.ID, 0); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("decision must not be persisted, got err = %v", err)
	}

	// The owner can still decide the chunk.
	if _, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionAccepted, TimeOnChunkMS: 1000,
	}); err != nil {
		t.Fatalf("owner decide after foreign attempt: %v", err)
	}
}

func TestDecideWriteOnce(t *testing.T) {
	ctx := context.Background()
	tr, st, sg := setup(t)

	if _, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionRejected, TimeOnChunkMS: 1000,
	}); err != nil {
		t.Fatal(err)
	}

	_, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionAccepted, TimeOnChunkMS: 1000,
	})
	if !errors.Is(err, model.ErrAlreadyDecided) {
		t.Fatalf("second decision: err = %v, want ErrAlreadyDecided", err)
	}

	// The first decision is untouched by the rejected retry.
	d, err := st.GetDecision(ctx, sg.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Decision != model.DecisionRejected {
		t.Errorf("stored decision = %q, want the original rejected", d.Decision)
	}
}

func TestDecideClampsTime(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below minimum", 50, 100},
		{"above maximum", 999999, 300000},
		{"in range", 5000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _, sg := setup(t)
			res, err := tr.Decide(ctx, DecideRequest{
				SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
				Decision: model.DecisionAccepted, TimeOnChunkMS: tt.in,
			})
			if err != nil {
				t.Fatal(err)
			}
			if res.Decision.TimeOnChunkMS != tt.want {
				t.Errorf("TimeOnChunkMS = %d, want %d", res.Decision.TimeOnChunkMS, tt.want)
			}
		})
	}
}

func TestDecideMultiChunkResolution(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := &model.Session{Username: "u", ProjectName: "p", StartedAt: time.Now()}
	if err := st.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	tr := New(st)
	sg := &model.Suggestion{
		SessionID: s.ID, InteractionID: "i1", FileID: "f1",
		OriginalContent: "a\nb\nc\n",
		ProposedContent: "A\nb\nC\n",
		ShownAt:         time.Now(),
	}
	hunks, err := tr.Register(ctx, sg)
	if err != nil {
		t.Fatal(err)
	}
	if len(hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d", len(hunks))
	}

	first, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionModified, FinalCode: "AA\n", TimeOnChunkMS: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Resolution != nil {
		t.Fatal("resolution must wait for the last chunk")
	}

	decided, total, err := tr.Progress(ctx, sg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if decided != 1 || total != 2 {
		t.Errorf("progress = %d/%d, want 1/2", decided, total)
	}

	second, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 1,
		Decision: model.DecisionAccepted, FinalCode: "C\n", TimeOnChunkMS: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Resolution == nil {
		t.Fatal("last chunk decision must resolve the suggestion")
	}
	if second.Resolution.AllAccepted {
		t.Error("a modified chunk means not all accepted")
	}
	if !second.Resolution.AnyModified {
		t.Error("a modified chunk must set AnyModified")
	}

	got, err := st.GetSuggestion(ctx, sg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Resolved() {
		t.Error("suggestion should be persisted as resolved")
	}
}

// failingStore simulates a persistence fault on the atomic decision write.
type failingStore struct {
	store.Store
}

func (f failingStore) ApplyDecision(context.Context, *model.ChunkDecision, *model.Event, *model.Resolution) error {
	return errors.New("disk full")
}

func TestDecidePersistenceFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	_, st, sg := setup(t)

	tr := New(failingStore{Store: st})
	_, err := tr.Decide(ctx, DecideRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, ChunkIndex: 0,
		Decision: model.DecisionAccepted, TimeOnChunkMS: 1000,
	})
	if err == nil {
		t.Fatal("expected the persistence fault to surface")
	}

	if _, err := st.GetDecision(ctx, sg.ID, 0); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("decision must not be persisted, got err = %v", err)
	}
	events, err := st.ListEvents(ctx, sg.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("audit trail must stay empty, got %d events", len(events))
	}
}

func TestResolveForcesTerminalState(t *testing.T) {
	ctx := context.Background()
	tr, st, sg := setup(t)

	res, err := tr.Resolve(ctx, ResolveRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID,
		FinalContent: "final file body\n",
		AllAccepted: true, AnyModified: true,
		Actor: "candidate",
	})
	if err != nil {
		t.Fatal(err)
	}
	// The client's reported outcome is stored as-is, undecided chunks
	// notwithstanding.
	if !res.AllAccepted || !res.AnyModified {
		t.Errorf("resolution = %+v, want the reported outcome", res)
	}
	got, err := st.GetSuggestion(ctx, sg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AllAccepted == nil || !*got.AllAccepted {
		t.Error("all_accepted must round-trip through the store")
	}
	if got.AnyModified == nil || !*got.AnyModified {
		t.Error("any_modified must round-trip through the store")
	}

	snap, err := st.LatestSnapshot(ctx, sg.FileID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Content != "final file body\n" || snap.Trigger != "suggestion_resolved" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.EditDelta == "" {
		t.Error("snapshot should carry the delta against the original content")
	}

	_, err = tr.Resolve(ctx, ResolveRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID,
		FinalContent: "again\n", Actor: "candidate",
	})
	if !errors.Is(err, model.ErrAlreadyResolved) {
		t.Errorf("second resolve: err = %v, want ErrAlreadyResolved", err)
	}
}

func TestResolveRequiresFinalContent(t *testing.T) {
	ctx := context.Background()
	tr, _, sg := setup(t)

	_, err := tr.Resolve(ctx, ResolveRequest{
		SessionID: sg.SessionID, SuggestionID: sg.ID, Actor: "candidate",
	})
	if !errors.Is(err, model.ErrMissingField) {
		t.Errorf("empty final content: err = %v, want ErrMissingField", err)
	}

	_, err = tr.Resolve(ctx, ResolveRequest{
		SessionID: sg.SessionID, SuggestionID: "missing",
		FinalContent: "x\n", Actor: "candidate",
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown suggestion: err = %v, want ErrNotFound", err)
	}
}

func TestResolveRejectsForeignSession(t *testing.T) {
	ctx := context.Background()
	tr, st, sg := setup(t)

	other := &model.Session{Username: "someone-else", ProjectName: "p", StartedAt: time.Now()}
	if err := st.CreateSession(ctx, other); err != nil {
		t.Fatal(err)
	}

	_, err := tr.Resolve(ctx, ResolveRequest{
		SessionID: other.ID, SuggestionID: sg.ID,
		FinalContent: "hijacked\n", Actor: "someone-else",
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("foreign session resolve: err = %v, want ErrNotFound", err)
	}

	got, err := st.GetSuggestion(ctx, sg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Resolved() {
		t.Error("foreign attempt must not resolve the suggestion")
	}
}
