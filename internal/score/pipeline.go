package score

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akshatvasisht/oversite/internal/feature"
	"github.com/akshatvasisht/oversite/internal/judge"
	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/store"
)

// notEnoughData is the narrative recorded for sessions with no telemetry.
const notEnoughData = "Not Enough Data"

// Pipeline orchestrates a full scoring run: component evaluation,
// aggregation, persistence, and the asynchronous narrative.
type Pipeline struct {
	store    store.Store
	registry *Registry
	narrator judge.Narrator
}

// NewPipeline wires a pipeline. narrator may be nil; scores then carry
// the canned narrative.
func NewPipeline(st store.Store, reg *Registry, narrator judge.Narrator) *Pipeline {
	return &Pipeline{store: st, registry: reg, narrator: narrator}
}

// Run scores one session end to end and persists the result. The LLM
// narrative, when a narrator is configured, is filled in asynchronously;
// the returned score carries the fallback text until then.
func (p *Pipeline) Run(ctx context.Context, sessionID string) (*model.SessionScore, error) {
	session, err := p.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := p.store.ListEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	interactions, err := p.store.ListInteractions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading interactions: %w", err)
	}
	decisions, err := p.store.ListDecisions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading decisions: %w", err)
	}

	sc := &model.SessionScore{
		SessionID:  sessionID,
		ComputedAt: time.Now().UTC(),
	}

	if len(events) == 0 && len(interactions) == 0 && len(decisions) == 0 {
		// Nothing happened; a neutral score is the honest answer.
		sc.BehavioralScore = neutralScore
		sc.BehavioralLabel = model.LabelBalanced
		sc.PromptScore = neutralScore
		sc.ReviewScore = neutralScore
		sc.WeightedScore = neutralScore
		sc.OverallLabel = model.LabelBalanced
		sc.FallbackComponents = []string{"behavioral", "prompt", "review"}
		sc.Narrative = notEnoughData
		if err := p.persist(ctx, sc); err != nil {
			return nil, err
		}
		return sc, nil
	}

	tel := feature.TelemetryFromModels(decisions, events, interactions, session)
	behavioral := EvaluateBehavioral(tel, p.registry)

	prompts := make([]string, 0, len(interactions))
	for _, in := range interactions {
		prompts = append(prompts, in.Prompt)
	}
	prompt := EvaluatePrompts(prompts)

	review := EvaluateCriticalReview(tel.Decisions)

	weighted, label := Aggregate(behavioral.Score, prompt.Score, review.Score, p.registry.Importances())

	sc.BehavioralScore = behavioral.Score
	sc.BehavioralLabel = behavioral.Label
	sc.PromptScore = prompt.Score
	sc.ReviewScore = review.Score
	sc.WeightedScore = weighted
	sc.OverallLabel = label
	if behavioral.Fallback {
		sc.FallbackComponents = append(sc.FallbackComponents, "behavioral")
	}
	sc.Narrative = judge.FallbackNarrative(sc)

	if err := p.persist(ctx, sc); err != nil {
		return nil, err
	}

	if p.narrator != nil {
		ex := p.excerpt(ctx, session, events, interactions, decisions)
		saved := *sc
		go p.narrate(ex, &saved)
	}

	return sc, nil
}

// excerpt digests the session for the narrator, including the editor
// snapshots whose deltas feed the manual-edit line counts. A snapshot
// load failure degrades the excerpt, it never fails the scoring run.
func (p *Pipeline) excerpt(ctx context.Context, session *model.Session, events []model.Event, interactions []model.Interaction, decisions []model.ChunkDecision) judge.Excerpt {
	snapshots, err := p.store.ListSnapshots(ctx, session.ID)
	if err != nil {
		log.Printf("score: loading snapshots for session %s: %v", session.ID, err)
	}
	return judge.BuildExcerpt(session, events, interactions, decisions, snapshots)
}

func (p *Pipeline) persist(ctx context.Context, sc *model.SessionScore) error {
	if err := p.store.SaveScore(ctx, sc); err != nil {
		return fmt.Errorf("saving score: %w", err)
	}
	p.registry.CacheResult(sc.SessionID, sc)
	return nil
}

// narrate runs off the request path with its own deadline. Failures are
// logged and the fallback narrative stands.
func (p *Pipeline) narrate(ex judge.Excerpt, sc *model.SessionScore) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := p.narrator.Narrate(ctx, ex, sc)
	if err != nil {
		log.Printf("score: narrative for session %s: %v", sc.SessionID, err)
		return
	}
	if err := p.store.SetNarrative(ctx, sc.ID, text); err != nil {
		log.Printf("score: persisting narrative for session %s: %v", sc.SessionID, err)
		return
	}
	sc.Narrative = text
	p.registry.CacheResult(sc.SessionID, sc)
}

// Cached returns the cached or persisted score for a session.
func (p *Pipeline) Cached(ctx context.Context, sessionID string) (*model.SessionScore, error) {
	if sc, ok := p.registry.CachedResult(sessionID); ok {
		return sc, nil
	}
	return p.store.GetScore(ctx, sessionID)
}
